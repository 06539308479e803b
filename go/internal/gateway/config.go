package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	// SendQueueSize bounds each connection's outbound queue. A connection
	// whose queue is full is dropped.
	SendQueueSize int `yaml:"send_queue_size"`
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // clients only send control frames
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendQueueSize:   64,
	}
}

// LoadConnectionConfig overlays the YAML file at path on top of the defaults.
// An empty path returns the defaults.
func LoadConnectionConfig(path string) (ConnectionConfig, error) {
	config := DefaultConnectionConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read gateway config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse gateway config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate rejects values that would break the pumps.
func (c ConnectionConfig) Validate() error {
	switch {
	case c.WriteTimeout <= 0:
		return fmt.Errorf("write_timeout must be positive")
	case c.ReadTimeout <= 0:
		return fmt.Errorf("read_timeout must be positive")
	case c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout:
		return fmt.Errorf("ping_interval must be positive and shorter than read_timeout")
	case c.SendQueueSize <= 0:
		return fmt.Errorf("send_queue_size must be positive")
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("max_message_size must be positive")
	}
	return nil
}

// checkOrigin allows requests without an Origin header (non-browser clients)
// and browsers whose origin host is listed.
func (c ConnectionConfig) checkOrigin(r *http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}
