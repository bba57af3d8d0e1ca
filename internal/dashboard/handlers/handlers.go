// Package handlers implements the dashboard's read-only HTTP endpoints:
// health, proxy/host statistics, active users, and recent connection
// activity pulled from the audit trail. Grounded on the teacher's
// internal/api/handlers package; every route here is a GET — mutation
// still only happens over the management wire protocol (internal/mgmt).
package handlers

import (
	"log/slog"
	"time"

	"github.com/kestrelnet/socks5gate/internal/audit"
	"github.com/kestrelnet/socks5gate/internal/store"
)

// Handler holds the dependencies the dashboard's routes read from.
type Handler struct {
	store     *store.Store
	auditDB   *audit.DB // nil if the audit trail is disabled
	logger    *slog.Logger
	startTime time.Time
}

// New builds a Handler. auditDB may be nil; the activity endpoint then
// returns an empty event list rather than failing.
func New(st *store.Store, auditDB *audit.DB, logger *slog.Logger) *Handler {
	return &Handler{store: st, auditDB: auditDB, logger: logger, startTime: time.Now()}
}
