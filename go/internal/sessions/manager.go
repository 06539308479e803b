package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Manager issues, resolves and ends sessions on top of a Store.
// It is safe for concurrent use.
type Manager struct {
	store Store
	ttl   time.Duration
	clock clockwork.Clock
}

// NewManager creates a session manager. A zero ttl means sessions never expire.
func NewManager(store Store, ttl time.Duration, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		clock: clock,
	}
}

// Start creates a session for the user.
func (m *Manager) Start(ctx context.Context, userID models.UserID) (*models.Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()
	session := models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// Resolve maps a token to the user it was issued to.
func (m *Manager) Resolve(ctx context.Context, token string) (models.UserID, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}

	session, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to resolve session: %w", err)
	}

	if session.Expired(m.clock.Now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Int64("user_id", session.UserID).Msg("failed to delete expired session")
		}
		return 0, ErrSessionNotFound
	}

	return session.UserID, nil
}

// End deletes the session behind token.
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
