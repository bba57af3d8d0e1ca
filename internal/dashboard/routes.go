package dashboard

import (
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kestrelnet/socks5gate/internal/dashboard/handlers"
	_ "github.com/kestrelnet/socks5gate/internal/dashboard/docs" // swagger docs
)

// registerRoutes wires the dashboard's routes onto r. Everything under
// /api/v1 is a GET: this surface never mutates proxy state, only the
// management wire protocol (internal/mgmt) does.
func registerRoutes(r *gin.Engine, h *handlers.Handler, staticDir string) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/users", h.Users)
	api.GET("/activity", h.Activity)

	if staticDir != "" {
		r.Use(static.Serve("/", static.LocalFile(staticDir, false)))
	}
}
