package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/timekeeper/go/internal/config"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := setupDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer pool.Close()

	services, err := setupServices(ctx, cfg, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg, services)

	// The gateway stops its heartbeat and closes websockets when ctx is cancelled.
	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		services.Gateway.Start(ctx)
	}()

	if services.Subscriber != nil {
		go func() {
			if err := services.Subscriber.Start(ctx); err != nil {
				log.Error().Err(err).Msg("timer change subscriber failed")
				stop()
			}
		}()
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	select {
	case <-gatewayDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out waiting for gateway to stop")
	}

	log.Info().Msg("timekeeper shutdown complete")
}
