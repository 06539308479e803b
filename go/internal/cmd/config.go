package main

import (
	"os"
	"time"

	"github.com/mcdev12/timekeeper/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupLogging configures the global zerolog logger
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.ConsoleLogs() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// request scoped loggers fall back to the global one
	zerolog.DefaultContextLogger = &log.Logger
}
