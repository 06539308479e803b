package sessions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sqlutil"
)

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new session.
func (s *PostgresStore) Create(ctx context.Context, session models.Session) error {
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	query := `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, session.Token, session.UserID, session.CreatedAt, expiresAt)
	return err
}

// Get looks up the session by token.
func (s *PostgresStore) Get(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1`

	var session models.Session
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		if sqlutil.IsNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes the session.
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
