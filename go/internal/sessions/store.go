// Package sessions issues opaque session tokens and resolves them back to users.
package sessions

import (
	"context"
	"errors"

	"github.com/mcdev12/timekeeper/go/internal/models"
)

// ErrSessionNotFound is returned for unknown, expired or empty tokens.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when storing a session that has already expired.
var ErrSessionExpired = errors.New("session already expired")

// Store is the key-value contract sessions are kept behind.
type Store interface {
	// Create saves a new session.
	Create(ctx context.Context, session models.Session) error

	// Get returns the session for token, or ErrSessionNotFound.
	Get(ctx context.Context, token string) (*models.Session, error)

	// Delete removes the session. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error
}
