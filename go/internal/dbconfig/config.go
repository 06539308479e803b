package dbconfig

import (
	"fmt"
	"net/url"
)

// Config holds Postgres connection settings.
type Config struct {
	// URL wins over the individual DB_* settings when set.
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME" envDefault:"timekeeper"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxConns int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns int32 `env:"DB_MIN_CONNS" envDefault:"2"`
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.PathEscape(c.User), url.PathEscape(c.Password), c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Redacted returns the DSN with the password removed, for logging.
func (c Config) Redacted() string {
	u, err := url.Parse(c.DSN())
	if err != nil {
		return "[redacted]"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
