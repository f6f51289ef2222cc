package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration for the bridge server started by
// cmd/biovaultcore: listener, TLS, rate limiting, logging sinks, and the
// health/metrics endpoints. It is distinct from Settings (per-profile
// feature toggles the desktop UI edits at runtime) and Profile (which
// identity is active): Config is read once at startup from a YAML file plus
// environment overrides.
type Config struct {
	Bridge     BridgeConfig     `yaml:"bridge"`
	Security   SecurityConfig   `yaml:"security"`
	Logging    LoggingConfig    `yaml:"logging"`
	Health     HealthConfig     `yaml:"health"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// BridgeConfig contains the core Agent Bridge listener settings.
type BridgeConfig struct {
	ListenAddress  string        `yaml:"listen_address"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LongTimeout    time.Duration `yaml:"long_request_timeout"`
	TLS            TLSConfig     `yaml:"tls"`
}

// TLSConfig contains optional TLS settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig contains security-related settings.
type SecurityConfig struct {
	TailscaleOnly       bool            `yaml:"tailscale_only"`
	AuthToken           string          `yaml:"auth_token"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
	MaxConnections      int             `yaml:"max_connections"`
	MaxConnectionsPerIP int             `yaml:"max_connections_per_ip"`
}

// RateLimitConfig contains per-connection command rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// HealthConfig contains health check endpoint settings.
type HealthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	ListenAddress string `yaml:"listen_address"`
	Detailed      bool   `yaml:"detailed"`
}

// MonitoringConfig contains Prometheus metrics settings.
type MonitoringConfig struct {
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// DefaultConfig returns a Config with sensible desktop-local defaults: the
// bridge listens on loopback only by default; it has no reason to accept
// connections from off-box unless Tailscale gating is explicitly enabled.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ListenAddress:  "127.0.0.1:8765",
			DrainTimeout:   30 * time.Second,
			MaxMessageSize: 1048576, // 1MB
			PingInterval:   30 * time.Second,
			PongTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			ReadTimeout:    60 * time.Second,
			RequestTimeout: 30 * time.Second,
			LongTimeout:    180 * time.Second,
		},
		Security: SecurityConfig{
			TailscaleOnly:       false,
			MaxConnections:      64,
			MaxConnectionsPerIP: 16,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				CommandsPerSecond: 20,
				Burst:             40,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Health: HealthConfig{
			Enabled:       true,
			Endpoint:      "/health",
			ListenAddress: "127.0.0.1:8766",
			Detailed:      true,
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled:  true,
			MetricsEndpoint: "/metrics",
		},
	}
}

// Load reads a config file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found at %s (run 'biovaultcore validate' after creating one)", path)
			}
			if os.IsPermission(err) {
				return nil, fmt.Errorf("permission denied reading %s", path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w (check YAML indentation)", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Bridge.ListenAddress == "" {
		return fmt.Errorf("bridge.listen_address is required")
	}
	if _, _, err := net.SplitHostPort(c.Bridge.ListenAddress); err != nil {
		return fmt.Errorf("bridge.listen_address is invalid: %w", err)
	}
	if c.Bridge.MaxMessageSize <= 0 {
		return fmt.Errorf("bridge.max_message_size must be positive")
	}
	if c.Bridge.DrainTimeout <= 0 {
		return fmt.Errorf("bridge.drain_timeout must be positive")
	}
	if c.Bridge.WriteTimeout <= 0 {
		return fmt.Errorf("bridge.write_timeout must be positive")
	}
	if c.Bridge.ReadTimeout <= 0 {
		return fmt.Errorf("bridge.read_timeout must be positive")
	}
	if c.Bridge.RequestTimeout <= 0 {
		return fmt.Errorf("bridge.request_timeout must be positive")
	}

	if c.Bridge.MaxMessageSize > 67108864 {
		return fmt.Errorf("bridge.max_message_size must not exceed 67108864 (64MB)")
	}
	if c.Bridge.DrainTimeout > 5*time.Minute {
		return fmt.Errorf("bridge.drain_timeout must not exceed 5m")
	}
	if c.Bridge.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("bridge.write_timeout must not exceed 5m")
	}
	if c.Bridge.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("bridge.read_timeout must not exceed 5m")
	}

	if c.Security.TailscaleOnly {
		host, _, _ := net.SplitHostPort(c.Bridge.ListenAddress)
		if host == "0.0.0.0" || host == "::" || host == "" {
			return fmt.Errorf("bridge.listen_address should not bind to all interfaces when security.tailscale_only is true (use a Tailscale IP)")
		}
	}

	if c.Bridge.TLS.Enabled {
		if c.Bridge.TLS.CertFile == "" {
			return fmt.Errorf("bridge.tls.cert_file is required when TLS is enabled")
		}
		if c.Bridge.TLS.KeyFile == "" {
			return fmt.Errorf("bridge.tls.key_file is required when TLS is enabled")
		}
	}

	if c.Security.MaxConnections <= 0 {
		return fmt.Errorf("security.max_connections must be positive")
	}
	if c.Security.MaxConnections > 65535 {
		return fmt.Errorf("security.max_connections must not exceed 65535")
	}
	if c.Security.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("security.max_connections_per_ip must be positive")
	}
	if c.Security.MaxConnectionsPerIP > c.Security.MaxConnections {
		return fmt.Errorf("security.max_connections_per_ip must not exceed security.max_connections")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.CommandsPerSecond <= 0 {
		return fmt.Errorf("security.rate_limit.commands_per_second must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Health.Enabled {
		if c.Health.ListenAddress == "" {
			return fmt.Errorf("health.listen_address is required when health is enabled")
		}
		if _, _, err := net.SplitHostPort(c.Health.ListenAddress); err != nil {
			return fmt.Errorf("health.listen_address is invalid: %w", err)
		}
		if c.Bridge.ListenAddress == c.Health.ListenAddress {
			return fmt.Errorf("bridge.listen_address and health.listen_address must be different")
		}
	}

	return nil
}

// applyEnvOverrides applies BIOVAULTCORE_ prefixed environment variables.
// Convention: BIOVAULTCORE_ + uppercase + underscores for nesting.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]func(string){
		"BIOVAULTCORE_BRIDGE_LISTEN_ADDRESS":   func(v string) { cfg.Bridge.ListenAddress = v },
		"BIOVAULTCORE_BRIDGE_DRAIN_TIMEOUT":    func(v string) { cfg.Bridge.DrainTimeout = parseDuration(v, cfg.Bridge.DrainTimeout) },
		"BIOVAULTCORE_BRIDGE_MAX_MESSAGE_SIZE": func(v string) { cfg.Bridge.MaxMessageSize = parseInt64(v, cfg.Bridge.MaxMessageSize) },
		"BIOVAULTCORE_BRIDGE_PING_INTERVAL":    func(v string) { cfg.Bridge.PingInterval = parseDuration(v, cfg.Bridge.PingInterval) },
		"BIOVAULTCORE_BRIDGE_PONG_TIMEOUT":     func(v string) { cfg.Bridge.PongTimeout = parseDuration(v, cfg.Bridge.PongTimeout) },
		"BIOVAULTCORE_BRIDGE_WRITE_TIMEOUT":    func(v string) { cfg.Bridge.WriteTimeout = parseDuration(v, cfg.Bridge.WriteTimeout) },
		"BIOVAULTCORE_BRIDGE_READ_TIMEOUT":     func(v string) { cfg.Bridge.ReadTimeout = parseDuration(v, cfg.Bridge.ReadTimeout) },
		"BIOVAULTCORE_BRIDGE_REQUEST_TIMEOUT":  func(v string) { cfg.Bridge.RequestTimeout = parseDuration(v, cfg.Bridge.RequestTimeout) },
		"BIOVAULTCORE_SECURITY_TAILSCALE_ONLY": func(v string) { cfg.Security.TailscaleOnly = parseBool(v, cfg.Security.TailscaleOnly) },
		"BIOVAULTCORE_SECURITY_AUTH_TOKEN":     func(v string) { cfg.Security.AuthToken = v },
		"BIOVAULTCORE_SECURITY_MAX_CONNECTIONS": func(v string) {
			cfg.Security.MaxConnections = parseInt(v, cfg.Security.MaxConnections)
		},
		"BIOVAULTCORE_SECURITY_MAX_CONNECTIONS_PER_IP": func(v string) {
			cfg.Security.MaxConnectionsPerIP = parseInt(v, cfg.Security.MaxConnectionsPerIP)
		},
		"BIOVAULTCORE_SECURITY_RATE_LIMIT_ENABLED": func(v string) {
			cfg.Security.RateLimit.Enabled = parseBool(v, cfg.Security.RateLimit.Enabled)
		},
		"BIOVAULTCORE_LOGGING_LEVEL":         func(v string) { cfg.Logging.Level = v },
		"BIOVAULTCORE_LOGGING_FORMAT":        func(v string) { cfg.Logging.Format = v },
		"BIOVAULTCORE_LOGGING_FILE":          func(v string) { cfg.Logging.File = v },
		"BIOVAULTCORE_HEALTH_ENABLED":        func(v string) { cfg.Health.Enabled = parseBool(v, cfg.Health.Enabled) },
		"BIOVAULTCORE_HEALTH_LISTEN_ADDRESS": func(v string) { cfg.Health.ListenAddress = v },
	}

	for env, setter := range envMap {
		if v := os.Getenv(env); v != "" {
			setter(v)
		}
	}
}

// ReloadableFields copies newCfg's hot-reloadable fields into c in place.
// Non-reloadable: listen_address, tls, health.listen_address.
func (c *Config) ReloadableFields(newCfg *Config) {
	c.Security.RateLimit = newCfg.Security.RateLimit
	c.Security.AuthToken = newCfg.Security.AuthToken
	c.Security.MaxConnections = newCfg.Security.MaxConnections
	c.Security.MaxConnectionsPerIP = newCfg.Security.MaxConnectionsPerIP
	c.Logging.Level = newCfg.Logging.Level
	c.Bridge.MaxMessageSize = newCfg.Bridge.MaxMessageSize
}

// IsReloadSafe reports which fields changed between old and new that require
// a process restart rather than a hot reload.
func IsReloadSafe(old, new *Config) []string {
	var warnings []string
	if old.Bridge.ListenAddress != new.Bridge.ListenAddress {
		warnings = append(warnings, "bridge.listen_address requires restart")
	}
	if !reflect.DeepEqual(old.Bridge.TLS, new.Bridge.TLS) {
		warnings = append(warnings, "bridge.tls requires restart")
	}
	if old.Health.ListenAddress != new.Health.ListenAddress {
		warnings = append(warnings, "health.listen_address requires restart")
	}
	return warnings
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt64(s string, fallback int64) int64 {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return fallback
	}
	return v
}

func parseInt(s string, fallback int) int {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return fallback
	}
	return v
}

func parseBool(s string, fallback bool) bool {
	s = strings.ToLower(s)
	switch s {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
