package config

import (
	"fmt"
	"strings"
	"time"
)

// Environments recognised by server.environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Store drivers.
const (
	DriverLibSQL = "libsql"
	DriverRedis  = "redis"
)

// Config is the complete application configuration. Layers are applied in
// order: built-in defaults, the user config file, environment variables,
// then runtime overrides such as CLI flags.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DNS     DNSConfig     `mapstructure:"dns"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Environment gates error details and the Secure cookie flag.
	// One of development, production, test.
	Environment string `mapstructure:"environment"`
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, EnvProduction)
}

// DNSConfig controls the resolver used by the verifier.
type DNSConfig struct {
	// Nameservers are host or host:port entries. Empty uses resolv.conf.
	Nameservers []string      `mapstructure:"nameservers"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// DKIMSelectors replaces the built-in probe list when set.
	DKIMSelectors []string `mapstructure:"dkim_selectors"`
}

// OAuthConfig holds the Google OAuth client registration.
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURI  string   `mapstructure:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes"`
}

// Configured reports whether client credentials are present.
func (o OAuthConfig) Configured() bool {
	return strings.TrimSpace(o.ClientID) != "" && strings.TrimSpace(o.ClientSecret) != ""
}

// StoreConfig selects and configures the token store.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	RedisURL  string `mapstructure:"redis_url"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile is SIMPLE or STRUCTURED.
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port is the dedicated exporter port; /metrics on the main server proxies it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Server.Environment) {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("server.environment %q must be development, production or test", c.Server.Environment)
	}
	if c.DNS.Timeout <= 0 {
		return fmt.Errorf("dns.timeout must be positive")
	}
	switch c.Store.Driver {
	case DriverLibSQL:
		if strings.TrimSpace(c.Store.Path) == "" && strings.TrimSpace(c.Store.URL) == "" {
			return fmt.Errorf("store.path or store.url is required for the libsql driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q must be libsql or redis", c.Store.Driver)
	}
	return nil
}
