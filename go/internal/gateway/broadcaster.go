package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// TimerSource is the read side of timer storage used for pushes.
type TimerSource interface {
	ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error)
	ListActiveTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error)
}

// changePushTimeout bounds a snapshot push triggered by a timer change.
const changePushTimeout = 5 * time.Second

// pushStripes is the number of locks pushes for different users are spread over.
const pushStripes = 64

// Broadcaster loads timers and pushes them to every connection of a user.
type Broadcaster struct {
	registry *Registry
	source   TimerSource
	clock    clockwork.Clock
	metrics  MetricsCollector

	// A push holds its user's stripe from fetch to enqueue, so two pushes for
	// the same user reach the queues in the order they read storage.
	stripes [pushStripes]sync.Mutex
}

var _ timers.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster. A nil clock uses the real clock and
// nil metrics disables collection.
func NewBroadcaster(registry *Registry, source TimerSource, clock clockwork.Clock, metrics MetricsCollector) *Broadcaster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Broadcaster{
		registry: registry,
		source:   source,
		clock:    clock,
		metrics:  metrics,
	}
}

// PushSnapshot sends the full timer list to all of userID's connections.
// Users without connections are skipped without touching storage.
func (b *Broadcaster) PushSnapshot(ctx context.Context, userID models.UserID) error {
	if len(b.registry.ConnectionsFor(userID)) == 0 {
		return nil
	}

	mu := b.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	list, err := b.source.ListTimers(ctx, userID)
	if err != nil {
		b.metrics.PushFailed(EventTypeAllTimers)
		return fmt.Errorf("load timers for user %d: %w", userID, err)
	}

	payload, err := json.Marshal(newAllTimersEvent(list))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EventTypeAllTimers, err)
	}

	b.deliver(EventTypeAllTimers, b.registry.ConnectionsFor(userID), payload)
	return nil
}

// PushProgress sends the running timers with their elapsed time to all of
// userID's connections. An empty list is still sent.
func (b *Broadcaster) PushProgress(ctx context.Context, userID models.UserID) error {
	if len(b.registry.ConnectionsFor(userID)) == 0 {
		return nil
	}

	mu := b.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	active, err := b.source.ListActiveTimers(ctx, userID)
	if err != nil {
		b.metrics.PushFailed(EventTypeActiveTimers)
		return fmt.Errorf("load active timers for user %d: %w", userID, err)
	}

	now := b.clock.Now()
	event := ActiveTimersEvent{
		Type:   EventTypeActiveTimers,
		Timers: make([]TimerProgress, 0, len(active)),
	}
	for _, timer := range active {
		event.Timers = append(event.Timers, TimerProgress{
			Timer:    timer,
			Progress: timers.FormatDuration(now.Sub(timer.StartedAt)),
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EventTypeActiveTimers, err)
	}

	b.deliver(EventTypeActiveTimers, b.registry.ConnectionsFor(userID), payload)
	return nil
}

// SendSnapshot sends the full timer list to a single, newly registered connection.
func (b *Broadcaster) SendSnapshot(ctx context.Context, conn *Connection) error {
	mu := b.stripe(conn.UserID)
	mu.Lock()
	defer mu.Unlock()

	return b.sendSnapshotLocked(ctx, conn)
}

// Attach registers conn and queues its initial snapshot under the user's
// stripe, so no other push for the user can be queued ahead of the snapshot.
// conn stays registered when the snapshot cannot be loaded.
func (b *Broadcaster) Attach(ctx context.Context, conn *Connection) error {
	mu := b.stripe(conn.UserID)
	mu.Lock()
	defer mu.Unlock()

	b.registry.Register(conn.UserID, conn)
	return b.sendSnapshotLocked(ctx, conn)
}

func (b *Broadcaster) sendSnapshotLocked(ctx context.Context, conn *Connection) error {
	list, err := b.source.ListTimers(ctx, conn.UserID)
	if err != nil {
		b.metrics.PushFailed(EventTypeAllTimers)
		return fmt.Errorf("load timers for user %d: %w", conn.UserID, err)
	}

	payload, err := json.Marshal(newAllTimersEvent(list))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EventTypeAllTimers, err)
	}

	b.deliver(EventTypeAllTimers, []*Connection{conn}, payload)
	return nil
}

// TimersChanged pushes a fresh snapshot after a timer was created or stopped.
// The change is already stored, so the push outlives cancellation of ctx.
func (b *Broadcaster) TimersChanged(ctx context.Context, userID models.UserID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), changePushTimeout)
	defer cancel()

	if err := b.PushSnapshot(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to push timer snapshot")
	}
}

// Release unregisters and closes conn. Only the first call for a registered
// connection counts it as closed.
func (b *Broadcaster) Release(conn *Connection) {
	if b.registry.Unregister(conn.UserID, conn) {
		b.metrics.ConnectionClosed()
		log.Info().
			Str("connection_id", conn.ID).
			Int64("user_id", conn.UserID).
			Msg("connection unregistered")
	}
	conn.Close()
}

// deliver queues payload on every connection. Connections that cannot take it
// are released; the rest still receive it.
func (b *Broadcaster) deliver(eventType EventType, connections []*Connection, payload []byte) {
	for _, conn := range connections {
		if conn.enqueue(payload) {
			b.metrics.MessageSent(eventType)
			continue
		}

		b.metrics.MessageDropped(eventType)
		log.Warn().
			Str("connection_id", conn.ID).
			Int64("user_id", conn.UserID).
			Str("event_type", string(eventType)).
			Msg("connection closed or send queue full, releasing connection")
		b.Release(conn)
	}
}

func (b *Broadcaster) stripe(userID models.UserID) *sync.Mutex {
	i := userID % pushStripes
	if i < 0 {
		i = -i
	}
	return &b.stripes[i]
}
