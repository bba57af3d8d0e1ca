// Package dashboard provides a read-only HTTP monitoring surface for the
// SOCKS5 proxy: health, traffic statistics, the active user table, and
// recent connection activity from the audit trail. Grounded on the
// teacher's internal/api package (gin.Engine + http.Server wrapper,
// swaggo-documented routes) with every write endpoint dropped — mutation
// stays on the management wire protocol (internal/mgmt), per SPEC_FULL.md's
// domain-stack decision to keep this surface observe-only.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kestrelnet/socks5gate/internal/audit"
	"github.com/kestrelnet/socks5gate/internal/dashboard/handlers"
	"github.com/kestrelnet/socks5gate/internal/store"
)

// Server is the dashboard's HTTP server.
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds the dashboard server bound to addr. auditDB may be nil, in
// which case /health reports ok regardless of audit state and /activity
// reports zero events. staticDir, if non-empty, is served at "/" beneath
// the API routes (a prebuilt single-page UI, not part of this module).
func New(addr string, st *store.Store, auditDB *audit.DB, staticDir string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(slogRequestLogger(logger))

	h := handlers.New(st, auditDB, logger)
	registerRoutes(engine, h, staticDir)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, engine: engine, httpServer: httpServer}
}

// Addr returns the server's bind address.
func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

// Engine returns the underlying gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// slogRequestLogger logs each request's method, path, status and latency.
func slogRequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		if logger != nil {
			logger.Info("dashboard request",
				"method", method,
				"path", path,
				"status", c.Writer.Status(),
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		}
	}
}
