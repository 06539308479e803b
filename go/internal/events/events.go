// Package events relays timer change notifications over NATS so that every
// gateway instance can push fresh snapshots to its own connections.
package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// TimerChangedEvent is published after a user's timers were created or stopped
type TimerChangedEvent struct {
	EventID    string        `json:"eventId"`
	UserID     models.UserID `json:"userId"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// Config holds configuration for the NATS connection
type Config struct {
	URL           string
	SubjectPrefix string // e.g. "timers.changed"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default NATS configuration
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "timers.changed",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Connect opens a NATS connection that logs disconnects and keeps reconnecting
func Connect(config Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("timekeeper"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subject returns the subject a user's change events are published on
func Subject(prefix string, userID models.UserID) string {
	return prefix + "." + strconv.FormatInt(userID, 10)
}

// ParseSubject extracts the user ID from a subject built by Subject
func ParseSubject(prefix, subject string) (models.UserID, error) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || rest == "" {
		return 0, fmt.Errorf("subject %q is not under %q", subject, prefix)
	}
	userID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q has invalid user id: %w", subject, err)
	}
	return userID, nil
}
