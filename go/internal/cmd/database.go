package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/timekeeper/go/internal/dbconfig"
	"github.com/mcdev12/timekeeper/go/internal/migrations"
	"github.com/rs/zerolog/log"
)

// setupDatabase migrates the schema and opens the connection pool
func setupDatabase(ctx context.Context, dbCfg dbconfig.Config) (*pgxpool.Pool, error) {
	if err := migrations.Up(ctx, dbCfg.DSN()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolCfg.MaxConns = dbCfg.MaxConns
	poolCfg.MinConns = dbCfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("database", dbCfg.Redacted()).Msg("connected to database")
	return pool, nil
}
