package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher announces timer changes on NATS. Delivery is fire and forget.
type Publisher struct {
	conn   Conn
	prefix string
	clock  clockwork.Clock
}

var _ timers.Notifier = (*Publisher)(nil)

// NewPublisher creates a new Publisher
func NewPublisher(conn Conn, prefix string, clock clockwork.Clock) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		clock:  clock,
	}
}

// TimersChanged publishes a TimerChangedEvent for userID
func (p *Publisher) TimersChanged(_ context.Context, userID models.UserID) {
	event := TimerChangedEvent{
		EventID:    uuid.New().String(),
		UserID:     userID,
		OccurredAt: p.clock.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to marshal timer changed event")
		return
	}

	subject := Subject(p.prefix, userID)
	if err := p.conn.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Int64("user_id", userID).Msg("failed to publish timer changed event")
		return
	}

	log.Debug().Str("subject", subject).Str("event_id", event.EventID).Msg("published timer changed event")
}
