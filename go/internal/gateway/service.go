package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service wires the registry, broadcaster, heartbeat and websocket handler together
type Service struct {
	registry    *Registry
	broadcaster *Broadcaster
	heartbeat   *Heartbeat
	wsHandler   *WebSocketHandler
}

// Config holds configuration for the timer gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	HeartbeatConfig  HeartbeatConfig
}

// DefaultConfig returns default configuration for the timer gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		HeartbeatConfig:  DefaultHeartbeatConfig(),
	}
}

// NewService creates a new timer gateway service
func NewService(config Config, resolver SessionResolver, source TimerSource, clock clockwork.Clock, metrics MetricsCollector) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}

	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, source, clock, metrics)

	return &Service{
		registry:    registry,
		broadcaster: broadcaster,
		heartbeat:   NewHeartbeat(registry, broadcaster, clock, config.HeartbeatConfig, metrics),
		wsHandler:   NewWebSocketHandler(resolver, registry, broadcaster, config.ConnectionConfig, clock, metrics),
	}
}

// Start runs the heartbeat until ctx is cancelled, then closes every connection.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting timer gateway service")
	s.heartbeat.Run(ctx)
	s.Stop()
}

// Stop releases every registered connection
func (s *Service) Stop() {
	for _, userID := range s.registry.UserIDs() {
		for _, conn := range s.registry.ConnectionsFor(userID) {
			s.broadcaster.Release(conn)
		}
	}
	log.Info().Msg("timer gateway service stopped")
}

// Broadcaster returns the broadcaster, which also serves as the timers notifier.
func (s *Service) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() Stats {
	return s.registry.Stats()
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.wsHandler.HandleConnection)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)
	log.Info().Msg("timer gateway routes registered")
}
