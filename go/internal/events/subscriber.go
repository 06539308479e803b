package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Subscriber forwards timer change events from NATS to a local notifier,
// normally the gateway broadcaster
type Subscriber struct {
	nc       *nats.Conn
	prefix   string
	notifier timers.Notifier
}

// NewSubscriber creates a new Subscriber
func NewSubscriber(nc *nats.Conn, prefix string, notifier timers.Notifier) *Subscriber {
	return &Subscriber{
		nc:       nc,
		prefix:   prefix,
		notifier: notifier,
	}
}

// Start subscribes to every user's subject and blocks until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(s.prefix+".>", func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s.>: %w", s.prefix, err)
	}

	log.Info().Str("subject", sub.Subject).Msg("listening for timer changes")
	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("failed to unsubscribe from timer changes")
	}
	return nil
}

func (s *Subscriber) handle(ctx context.Context, msg *nats.Msg) {
	userID, err := ParseSubject(s.prefix, msg.Subject)
	if err != nil {
		log.Warn().Err(err).Msg("dropping timer changed event")
		return
	}

	var event TimerChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed timer changed event")
	} else if event.UserID != userID {
		log.Warn().
			Str("subject", msg.Subject).
			Int64("event_user_id", event.UserID).
			Msg("timer changed event does not match its subject")
		return
	}

	s.notifier.TimersChanged(ctx, userID)
}
