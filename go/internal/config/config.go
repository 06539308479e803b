// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/mcdev12/timekeeper/go/internal/dbconfig"
)

// Session backends
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is console or json. Empty picks console in development.
	LogFormat string `env:"LOG_FORMAT"`

	Database dbconfig.Config

	// Sessions
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"postgres"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"false"`

	// Change relay. Empty NATSURL keeps notifications in process.
	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"timers.changed"`

	// Gateway
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"1s"`
	HeartbeatConcurrency int           `env:"HEARTBEAT_CONCURRENCY" envDefault:"16"`
	GatewayConfigPath    string        `env:"GATEWAY_CONFIG"`

	// HTTP
	TrustProxyHeaders  bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AuthRateLimit      float64       `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst      int           `env:"AUTH_RATE_BURST" envDefault:"10"`
	APIRateLimit       float64       `env:"API_RATE_LIMIT" envDefault:"20"`
	APIRateBurst       int           `env:"API_RATE_BURST" envDefault:"40"`
	ReadHeaderTimeout  time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	IdleTimeout        time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ConsoleLogs reports whether logs should use the human readable writer.
func (c *Config) ConsoleLogs() bool {
	if c.LogFormat == "" {
		return c.IsDevelopment()
	}
	return c.LogFormat == "console"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case SessionBackendPostgres, SessionBackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionBackendPostgres, SessionBackendRedis, c.SessionBackend)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
