package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for sessions.
const sessionKeyPrefix = "session:"

// RedisStore keeps sessions as JSON values that Redis expires on its own.
type RedisStore struct {
	client *redis.Client
	clock  clockwork.Clock
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client *redis.Client, clock clockwork.Clock) *RedisStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisStore{client: client, clock: clock}
}

// cachedSession is the value stored under a session key.
type cachedSession struct {
	UserID    models.UserID `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Create stores the session with a TTL matching its expiry.
func (s *RedisStore) Create(ctx context.Context, session models.Session) error {
	// zero means no expiry for go-redis
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.clock.Now())
		if ttl <= 0 {
			return fmt.Errorf("store session for user %d: %w", session.UserID, ErrSessionExpired)
		}
	}

	data, err := json.Marshal(cachedSession{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.Token, data, ttl).Err()
}

// Get loads the session by token.
func (s *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry - treat as missing
		return nil, ErrSessionNotFound
	}

	return &models.Session{
		Token:     token,
		UserID:    cached.UserID,
		CreatedAt: cached.CreatedAt,
		ExpiresAt: cached.ExpiresAt,
	}, nil
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}
