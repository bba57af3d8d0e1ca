// Package store is the shared, mutex-guarded state behind both the SOCKS5
// relay loop and the management plane: the user table, global and per-user
// statistics, the connection-id counter, and runtime configuration.
//
// It is component A of the design: a handle passed into both the event loop
// and management handlers rather than a process-wide singleton, per the
// design note in spec §9 ("make it a handle ... this avoids hidden
// coupling and makes testing tractable").
package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelnet/socks5gate/internal/config"
	"github.com/kestrelnet/socks5gate/internal/userdb"
)

// User is one row of the shared user table.
type User struct {
	Username string
	Password string
	Active   bool
	Stats    UserStats
}

// UserStats holds per-user traffic counters, per spec §3 "Per-user stats".
type UserStats struct {
	TotalConnections      uint64
	TotalBytes            uint64
	CurrentConnections    int64
	CurrentBytes          uint64
	FirstConnectionTime   time.Time
	LastConnectionTime    time.Time
	TotalConnectedSeconds float64
}

// GlobalStats holds whole-process traffic counters, per spec §3 "Global stats".
type GlobalStats struct {
	TotalConnections   atomic.Uint64
	TotalBytes         atomic.Uint64
	CurrentConnections atomic.Int64
	CurrentBytes       atomic.Uint64
	PeakConnections    atomic.Int64
	StartTime          time.Time
}

// GlobalStatsSnapshot is a point-in-time copy of GlobalStats safe to hand out.
type GlobalStatsSnapshot struct {
	TotalConnections   uint64
	TotalBytes         uint64
	CurrentConnections int64
	CurrentBytes       uint64
	PeakConnections    int64
	StartTime          time.Time
}

// RuntimeConfig holds the knobs the management plane tunes at runtime
// (spec §3 "Runtime configuration", §9's design note: "Treat each config
// field as an independent atomic in a port"). Reads are lock-free scalars
// read as hints at decision points in the engine; writes go through the
// setters below.
type RuntimeConfig struct {
	timeoutMS         atomic.Int64
	bufferSize        atomic.Int64
	maxClients        atomic.Int64
	dissectorsEnabled atomic.Bool

	// idleTimeoutMS bounds how long a RELAYING slot may sit with no traffic
	// before the loop tears it down. Spec §5 notes the original has no such
	// timeout at all (a design gap); zero (the default) preserves that
	// behavior exactly. It is a startup-only knob, not part of the
	// management wire protocol's fixed SET_* command set.
	idleTimeoutMS atomic.Int64
}

func newRuntimeConfig(d config.RuntimeDefaults) *RuntimeConfig {
	rc := &RuntimeConfig{}
	rc.timeoutMS.Store(int64(d.TimeoutMS))
	rc.bufferSize.Store(int64(d.BufferSize))
	rc.maxClients.Store(int64(d.MaxClients))
	rc.dissectorsEnabled.Store(d.DissectorsEnabled)
	rc.idleTimeoutMS.Store(int64(d.IdleTimeoutMS))
	return rc
}

func (r *RuntimeConfig) TimeoutMS() int          { return int(r.timeoutMS.Load()) }
func (r *RuntimeConfig) BufferSize() int         { return int(r.bufferSize.Load()) }
func (r *RuntimeConfig) MaxClients() int         { return int(r.maxClients.Load()) }
func (r *RuntimeConfig) DissectorsEnabled() bool { return r.dissectorsEnabled.Load() }

// IdleTimeoutMS returns the RELAYING idle timeout in milliseconds, or 0 if
// disabled (the default, matching the original's lack of one).
func (r *RuntimeConfig) IdleTimeoutMS() int { return int(r.idleTimeoutMS.Load()) }

// SetTimeoutMS updates the connect timeout (ms). It does not validate; the
// caller checks v > 0 first.
func (r *RuntimeConfig) SetTimeoutMS(v int) { r.timeoutMS.Store(int64(v)) }

// SetBufferSize updates the relay buffer size in bytes.
func (r *RuntimeConfig) SetBufferSize(v int) { r.bufferSize.Store(int64(v)) }

// SetMaxClients updates the maximum concurrent proxy client count.
func (r *RuntimeConfig) SetMaxClients(v int) { r.maxClients.Store(int64(v)) }

// SetDissectorsEnabled toggles the POP3 dissector hook.
func (r *RuntimeConfig) SetDissectorsEnabled(v bool) { r.dissectorsEnabled.Store(v) }

// Store is the shared state handle. Separate mutexes guard the user table
// and the connection-id counter uses atomic fetch-add, so credential
// validation on the hot path never contends with statistics updates.
type Store struct {
	logger *slog.Logger

	usersMu   sync.RWMutex
	users     map[string]*User // keyed by username, active users only
	userOrder []string         // enumeration order, oldest first

	statsMu sync.Mutex // guards per-user Stats fields, separate from usersMu

	cliUsers map[string]string // ephemeral CLI-preloaded users, never persisted

	userDBPath string

	global GlobalStats

	connIDCounter atomic.Uint64

	Runtime *RuntimeConfig
}

// Option configures a Store at construction.
type Option func(*Store)

// WithCLIUsers preloads ephemeral users supplied on the proxy's own command
// line (validated in AUTH as the third source, per spec §4.5).
func WithCLIUsers(users map[string]string) Option {
	return func(s *Store) {
		for u, p := range users {
			s.cliUsers[u] = p
		}
	}
}

// New creates and initializes the shared store (component A's init()),
// loading the persisted user database (component B) and merging it into
// memory, capped at config.MaxUsers.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		logger:     logger,
		users:      make(map[string]*User),
		cliUsers:   make(map[string]string),
		userDBPath: cfg.UserDBPath,
		Runtime:    newRuntimeConfig(cfg.Runtime),
	}
	s.global.StartTime = time.Now()

	records, err := userdb.Load(cfg.UserDBPath, config.MaxUsers)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if len(s.users) >= config.MaxUsers {
			break
		}
		s.users[r.Username] = &User{Username: r.Username, Password: r.Password, Active: true}
		s.userOrder = append(s.userOrder, r.Username)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Teardown releases any resources the store holds. Currently a no-op hook
// kept for symmetry with the original's init()/teardown() lifecycle and for
// a graceful-shutdown signal handler to call unconditionally.
func (s *Store) Teardown() {}

// NextConnectionID returns a monotone, never-reused connection id via
// atomic fetch-add (spec §3 "Connection id"), starting at 1.
func (s *Store) NextConnectionID() uint64 {
	return s.connIDCounter.Add(1)
}

// HasUsers reports whether any user can authenticate, counting both the
// user table and CLI-preloaded users, which is what decides the SOCKS5
// GREETING's method selection (spec §4.5).
func (s *Store) HasUsers() bool {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	return len(s.users) > 0 || len(s.cliUsers) > 0
}
