// Command socks5gated runs the SOCKS5 proxy: the protocol listener, the
// binary management plane, the optional audit trail, and the optional
// read-only HTTP dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelnet/socks5gate/internal/accesslog"
	"github.com/kestrelnet/socks5gate/internal/audit"
	"github.com/kestrelnet/socks5gate/internal/config"
	"github.com/kestrelnet/socks5gate/internal/dashboard"
	"github.com/kestrelnet/socks5gate/internal/dissector/pop3"
	"github.com/kestrelnet/socks5gate/internal/logging"
	"github.com/kestrelnet/socks5gate/internal/mgmt"
	"github.com/kestrelnet/socks5gate/internal/relay"
	"github.com/kestrelnet/socks5gate/internal/socks5"
	"github.com/kestrelnet/socks5gate/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values, all optional overrides
// of config.Defaults().
type cliFlags struct {
	socksHost       string
	socksPort       int
	mgmtHost        string
	mgmtPort        int
	dashboard       bool
	dashboardHost   string
	dashboardPort   int
	dashboardStatic string
	userDBPath      string
	credentialLog   string
	auditPath       string
	noAudit         bool
	jsonLogs        bool
	debug           bool
	cliUser         string // "name:pass", repeatable via -user would be nicer, kept simple
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.socksHost, "host", "", "Override SOCKS5 listener bind host")
	flag.IntVar(&f.socksPort, "port", 0, "Override SOCKS5 listener bind port")
	flag.StringVar(&f.mgmtHost, "mgmt-host", "", "Override management listener bind host")
	flag.IntVar(&f.mgmtPort, "mgmt-port", 0, "Override management listener bind port")
	flag.BoolVar(&f.dashboard, "dashboard", false, "Enable the read-only HTTP dashboard")
	flag.StringVar(&f.dashboardHost, "dashboard-host", "", "Override dashboard bind host")
	flag.IntVar(&f.dashboardPort, "dashboard-port", 0, "Override dashboard bind port")
	flag.StringVar(&f.dashboardStatic, "dashboard-static-dir", "", "Directory of a prebuilt dashboard UI to serve at /")
	flag.StringVar(&f.userDBPath, "userdb", "", "Override path to the persisted user database")
	flag.StringVar(&f.credentialLog, "credential-log", "", "Override path to the POP3 credential dissector log")
	flag.StringVar(&f.auditPath, "audit-db", "", "Override path to the audit trail SQLite database")
	flag.BoolVar(&f.noAudit, "no-audit", false, "Disable the audit trail")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&f.cliUser, "user", "", "Preload one ephemeral user as name:password, never persisted")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.socksHost != "" {
		cfg.Socks.Host = f.socksHost
	}
	if f.socksPort != 0 {
		cfg.Socks.Port = f.socksPort
	}
	if f.mgmtHost != "" {
		cfg.Mgmt.Host = f.mgmtHost
	}
	if f.mgmtPort != 0 {
		cfg.Mgmt.Port = f.mgmtPort
	}
	if f.dashboard {
		cfg.Dashboard.Enabled = true
	}
	if f.dashboardHost != "" {
		cfg.Dashboard.Host = f.dashboardHost
	}
	if f.dashboardPort != 0 {
		cfg.Dashboard.Port = f.dashboardPort
	}
	if f.userDBPath != "" {
		cfg.UserDBPath = f.userDBPath
	}
	if f.credentialLog != "" {
		cfg.CredentialLogPath = f.credentialLog
	}
	if f.auditPath != "" {
		cfg.Audit.Path = f.auditPath
	}
	if f.noAudit {
		cfg.Audit.Enabled = false
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	cfg := config.Defaults()
	applyCLIOverrides(cfg, flags)
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: "json",
	})
	logger.Info("socks5gate starting",
		"socks_addr", fmt.Sprintf("%s:%d", cfg.Socks.Host, cfg.Socks.Port),
		"mgmt_addr", fmt.Sprintf("%s:%d", cfg.Mgmt.Host, cfg.Mgmt.Port),
		"dashboard_enabled", cfg.Dashboard.Enabled,
		"audit_enabled", cfg.Audit.Enabled,
	)

	opts := []store.Option{}
	if flags.cliUser != "" {
		name, pass, ok := splitCredential(flags.cliUser)
		if !ok {
			return fmt.Errorf("-user must be in name:password form")
		}
		opts = append(opts, store.WithCLIUsers(map[string]string{name: pass}))
	}

	st, err := store.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	var auditDB *audit.DB
	if cfg.Audit.Enabled {
		auditDB, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		defer auditDB.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)

	var recorder relay.AuditRecorder
	if auditDB != nil {
		recorder = auditDB
	}
	accessLog := accesslog.New(cfg.AccessLogPath)

	dissector := pop3.New(cfg.CredentialLogPath)
	loop, err := relay.NewEventLoop(st, socks5.DefaultResolver{}, dissector, recorder, accessLog, logger)
	if err != nil {
		return fmt.Errorf("event loop: %w", err)
	}
	go func() { errCh <- loop.Run(ctx, cfg.Socks.Host, cfg.Socks.Port) }()

	mgmtSrv := &mgmt.Server{
		Addr:   fmt.Sprintf("%s:%d", cfg.Mgmt.Host, cfg.Mgmt.Port),
		Logger: logger,
		Handler: &mgmt.Handler{
			Store:  st,
			Logger: logger,
			OnMutation: func(cmd mgmt.Command) {
				if auditDB == nil {
					return
				}
				if err := auditDB.RecordMgmtEvent(cmd.String(), "", ""); err != nil {
					logger.Warn("audit: record mgmt event", "error", err)
				}
			},
		},
	}
	go func() { errCh <- mgmtSrv.ListenAndServe(ctx) }()
	defer mgmtSrv.Close()

	var dashSrv *dashboard.Server
	if cfg.Dashboard.Enabled {
		dashSrv = dashboard.New(
			fmt.Sprintf("%s:%d", cfg.Dashboard.Host, cfg.Dashboard.Port),
			st, auditDB, flags.dashboardStatic, logger,
		)
		logger.Info("dashboard starting", "addr", dashSrv.Addr())
		go func() {
			serveErr := dashSrv.ListenAndServe()
			if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
				return
			}
			errCh <- serveErr
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			cancel()
			logger.Error("component exited with error", "error", err)
		}
	}

	if dashSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = dashSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	logger.Info("socks5gate stopped")
	return nil
}

func splitCredential(s string) (user, pass string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
