package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProgressPusher is the part of the Broadcaster the heartbeat drives.
type ProgressPusher interface {
	PushProgress(ctx context.Context, userID models.UserID) error
}

// UserLister lists users that currently have connections.
type UserLister interface {
	UserIDs() []models.UserID
}

// HeartbeatConfig controls the progress ticker.
type HeartbeatConfig struct {
	Interval time.Duration
	// Concurrency limits parallel pushes within a tick.
	Concurrency int
}

// DefaultHeartbeatConfig returns a one second heartbeat.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval:    time.Second,
		Concurrency: 16,
	}
}

// Heartbeat periodically pushes progress to every connected user.
type Heartbeat struct {
	users   UserLister
	pusher  ProgressPusher
	clock   clockwork.Clock
	config  HeartbeatConfig
	metrics MetricsCollector
}

// NewHeartbeat creates a heartbeat scheduler.
func NewHeartbeat(users UserLister, pusher ProgressPusher, clock clockwork.Clock, config HeartbeatConfig, metrics MetricsCollector) *Heartbeat {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultHeartbeatConfig().Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultHeartbeatConfig().Concurrency
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Heartbeat{
		users:   users,
		pusher:  pusher,
		clock:   clock,
		config:  config,
		metrics: metrics,
	}
}

// Run ticks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := h.clock.NewTicker(h.config.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", h.config.Interval).Msg("heartbeat started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("heartbeat stopped")
			return
		case <-ticker.Chan():
			h.Tick(ctx)
		}
	}
}

// Tick pushes progress to every connected user and waits for all pushes.
// A failed push is logged and does not affect other users. Pushes still
// running after one interval are cancelled.
func (h *Heartbeat) Tick(ctx context.Context) {
	start := h.clock.Now()
	userIDs := h.users.UserIDs()

	ctx, cancel := context.WithTimeout(ctx, h.config.Interval)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(h.config.Concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			if err := h.pusher.PushProgress(ctx, userID); err != nil {
				log.Error().Err(err).Int64("user_id", userID).Msg("failed to push timer progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	h.metrics.TickCompleted(len(userIDs), h.clock.Since(start))
}
