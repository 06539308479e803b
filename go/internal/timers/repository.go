package timers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sqlutil"
)

const timerColumns = `id, description, user_id, is_active, started_at, ended_at, duration`

// Repository implements timer persistence on Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new timers repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// CreateTimer inserts a new timer and returns the stored row
func (r *Repository) CreateTimer(ctx context.Context, timer models.Timer) (*models.Timer, error) {
	query := `
		INSERT INTO timers (id, description, user_id, is_active, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + timerColumns

	created, err := scanTimer(r.pool.QueryRow(ctx, query,
		timer.ID,
		timer.Description,
		timer.UserID,
		timer.Active,
		timer.StartedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create timer: %w", err)
	}
	return created, nil
}

// ListTimers returns every timer of the user, most recently started first
func (r *Repository) ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	query := `
		SELECT ` + timerColumns + `
		FROM timers
		WHERE user_id = $1
		ORDER BY started_at DESC, id DESC`

	timers, err := r.list(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	return timers, nil
}

// ListActiveTimers returns the running timers of the user
func (r *Repository) ListActiveTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error) {
	query := `
		SELECT ` + timerColumns + `
		FROM timers
		WHERE user_id = $1 AND is_active
		ORDER BY started_at DESC, id DESC`

	timers, err := r.list(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active timers: %w", err)
	}
	return timers, nil
}

// StopTimer marks an active timer of the user as stopped at endedAt.
//
// The row is locked before the update, so of two concurrent stops exactly one
// succeeds and the other gets ErrTimerNotFound.
func (r *Repository) StopTimer(ctx context.Context, timerID string, userID models.UserID, endedAt time.Time) (*models.Timer, error) {
	var stopped *models.Timer

	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		var startedAt time.Time
		err := tx.QueryRow(ctx, `
			SELECT started_at
			FROM timers
			WHERE id = $1 AND user_id = $2 AND is_active
			FOR UPDATE`,
			timerID, userID,
		).Scan(&startedAt)
		if err != nil {
			if sqlutil.IsNoRows(err) {
				return ErrTimerNotFound
			}
			return err
		}

		duration := FormatDuration(endedAt.Sub(startedAt))
		stopped, err = scanTimer(tx.QueryRow(ctx, `
			UPDATE timers
			SET is_active = FALSE, ended_at = $2, duration = $3
			WHERE id = $1
			RETURNING `+timerColumns,
			timerID, endedAt, duration,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTimerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to stop timer: %w", err)
	}
	return stopped, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]models.Timer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timers := make([]models.Timer, 0)
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers = append(timers, *t)
	}
	return timers, rows.Err()
}

func scanTimer(row pgx.Row) (*models.Timer, error) {
	var t models.Timer
	if err := row.Scan(
		&t.ID,
		&t.Description,
		&t.UserID,
		&t.Active,
		&t.StartedAt,
		&t.EndedAt,
		&t.Duration,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
