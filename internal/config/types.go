// Package config provides startup configuration for socks5gate.
//
// Static settings here (listener addresses, file paths, logging) are fixed
// for the process lifetime. Runtime-tunable knobs the management plane can
// change after startup (timeout, buffer size, max clients, dissector flag)
// do not live here — see store.RuntimeConfig, which seeds its defaults from
// this struct at startup.
package config

// SocksConfig controls the SOCKS5 listener.
type SocksConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// MgmtConfig controls the binary management listener.
type MgmtConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DashboardConfig controls the optional read-only HTTP monitoring surface.
type DashboardConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `json:"level"`
	Structured bool   `json:"structured"`
}

// AuditConfig controls the SQLite connection audit trail.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RuntimeDefaults seeds the mutable runtime configuration the management
// plane owns (store.RuntimeConfig). See spec §3 "Runtime configuration".
type RuntimeDefaults struct {
	TimeoutMS         int  `json:"timeout_ms"`
	BufferSize        int  `json:"buffer_size"`
	MaxClients        int  `json:"max_clients"`
	DissectorsEnabled bool `json:"dissectors_enabled"`

	// IdleTimeoutMS bounds how long a RELAYING connection may sit idle
	// before being torn down. Zero (the default) disables it, matching the
	// original's lack of a per-session idle timeout (spec §5/§9).
	IdleTimeoutMS int `json:"idle_timeout_ms"`
}

// Config is the root static configuration for the proxy process.
type Config struct {
	Socks             SocksConfig     `json:"socks"`
	Mgmt              MgmtConfig      `json:"mgmt"`
	Dashboard         DashboardConfig `json:"dashboard"`
	Logging           LoggingConfig   `json:"logging"`
	Audit             AuditConfig     `json:"audit"`
	Runtime           RuntimeDefaults `json:"runtime"`
	UserDBPath        string          `json:"user_db_path"`
	CredentialLogPath string          `json:"credential_log_path"`
	AccessLogPath     string          `json:"access_log_path"`
}
