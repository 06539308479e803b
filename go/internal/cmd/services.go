package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/timekeeper/go/internal/config"
	"github.com/mcdev12/timekeeper/go/internal/events"
	"github.com/mcdev12/timekeeper/go/internal/gateway"
	"github.com/mcdev12/timekeeper/go/internal/sessions"
	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/mcdev12/timekeeper/go/internal/users"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	NATS       *nats.Conn
	Metrics    *prometheus.Registry
	Sessions   *sessions.Manager
	Users      *users.App
	Timers     *timers.App
	Gateway    *gateway.Service
	Subscriber *events.Subscriber
}

func setupServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → HTTP layer
	services := &Services{
		Pool:    pool,
		Metrics: prometheus.NewRegistry(),
	}
	services.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Sessions
	store, err := services.setupSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services.Sessions = sessions.NewManager(store, cfg.SessionTTL, nil)

	// Gateway
	connCfg, err := gateway.LoadConnectionConfig(cfg.GatewayConfigPath)
	if err != nil {
		services.Close()
		return nil, err
	}
	timerRepo := timers.NewRepository(pool)
	services.Gateway = gateway.NewService(
		gateway.Config{
			ConnectionConfig: connCfg,
			HeartbeatConfig: gateway.HeartbeatConfig{
				Interval:    cfg.HeartbeatInterval,
				Concurrency: cfg.HeartbeatConcurrency,
			},
		},
		services.Sessions,
		timerRepo,
		nil,
		gateway.NewPrometheusMetrics(services.Metrics),
	)

	// Timer changes go straight to the local gateway unless NATS fans them out
	var notifier timers.Notifier = services.Gateway.Broadcaster()
	if cfg.NATSURL != "" {
		natsCfg := events.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix

		nc, err := events.Connect(natsCfg)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.NATS = nc
		notifier = events.NewPublisher(nc, natsCfg.SubjectPrefix, nil)
		services.Subscriber = events.NewSubscriber(nc, natsCfg.SubjectPrefix, services.Gateway.Broadcaster())
		log.Info().Str("subject_prefix", natsCfg.SubjectPrefix).Msg("timer changes relayed over NATS")
	}

	// Timers
	services.Timers = timers.NewApp(timerRepo, notifier, nil)

	// Users
	services.Users = users.NewApp(users.NewRepository(pool), cfg.BcryptCost)

	return services, nil
}

func (s *Services) setupSessionStore(ctx context.Context, cfg *config.Config) (sessions.Store, error) {
	if cfg.SessionBackend != config.SessionBackendRedis {
		log.Info().Msg("sessions stored in postgres")
		return sessions.NewPostgresStore(s.Pool), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	s.Redis = client

	log.Info().Str("addr", opts.Addr).Msg("sessions stored in redis")
	return sessions.NewRedisStore(client, nil), nil
}

// Close releases the connections opened by setupServices. The pool is owned by main.
func (s *Services) Close() {
	if s.NATS != nil {
		if err := s.NATS.Drain(); err != nil {
			log.Warn().Err(err).Msg("failed to drain NATS connection")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}
