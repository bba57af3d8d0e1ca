package config

import "errors"

// Default values, named after the constants in spec §3/§4.6.
const (
	DefaultSocksHost = "::"
	DefaultSocksPort = 1080
	DefaultMgmtHost  = "127.0.0.1"
	DefaultMgmtPort  = 8080

	DefaultDashboardHost = "127.0.0.1"
	DefaultDashboardPort = 8090

	DefaultTimeoutMS  = 10_000 // CONNECTION_TIMEOUT_MS, §4.5 CONNECTING
	MinBufferSize     = 512
	MaxBufferCapacity = 1 << 20
	DefaultBufferSize = 8192
	DefaultMaxClients = 1024
	MaxUsers          = 10

	DefaultUserDBPath        = "auth.db"
	DefaultCredentialLogPath = "pop3_credentials.log"
	DefaultAccessLogPath     = "metrics.log"
	DefaultAuditDBPath       = "socks5gate_audit.db"
)

// Defaults returns a Config populated with the spec's default values.
func Defaults() *Config {
	return &Config{
		Socks: SocksConfig{Host: DefaultSocksHost, Port: DefaultSocksPort},
		Mgmt:  MgmtConfig{Host: DefaultMgmtHost, Port: DefaultMgmtPort},
		Dashboard: DashboardConfig{
			Enabled: false,
			Host:    DefaultDashboardHost,
			Port:    DefaultDashboardPort,
		},
		Logging: LoggingConfig{Level: "INFO", Structured: false},
		Audit:   AuditConfig{Enabled: true, Path: DefaultAuditDBPath},
		Runtime: RuntimeDefaults{
			TimeoutMS:         DefaultTimeoutMS,
			BufferSize:        DefaultBufferSize,
			MaxClients:        DefaultMaxClients,
			DissectorsEnabled: false,
			IdleTimeoutMS:     0, // disabled by default; no idle timeout in the original
		},
		UserDBPath:        DefaultUserDBPath,
		CredentialLogPath: DefaultCredentialLogPath,
		AccessLogPath:     DefaultAccessLogPath,
	}
}

// Normalize validates a Config, matching spec §3's invariants:
// timeout > 0, MIN_BUFFER_SIZE <= buffer <= MAX_BUFFER_CAPACITY, max clients > 0.
// Out-of-range values are rejected with an error, not clamped; empty log
// level and file paths are filled in with their defaults.
func (c *Config) Normalize() error {
	if c.Socks.Port <= 0 || c.Socks.Port > 65535 {
		return errors.New("config: socks.port must be 1..65535")
	}
	if c.Mgmt.Port <= 0 || c.Mgmt.Port > 65535 {
		return errors.New("config: mgmt.port must be 1..65535")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return errors.New("config: dashboard.port must be 1..65535")
	}
	if c.Runtime.TimeoutMS <= 0 {
		return errors.New("config: runtime.timeout_ms must be > 0")
	}
	if c.Runtime.BufferSize < MinBufferSize || c.Runtime.BufferSize > MaxBufferCapacity {
		return errors.New("config: runtime.buffer_size out of range")
	}
	if c.Runtime.MaxClients <= 0 {
		return errors.New("config: runtime.max_clients must be > 0")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.UserDBPath == "" {
		c.UserDBPath = DefaultUserDBPath
	}
	if c.CredentialLogPath == "" {
		c.CredentialLogPath = DefaultCredentialLogPath
	}
	if c.AccessLogPath == "" {
		c.AccessLogPath = DefaultAccessLogPath
	}
	return nil
}
