package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	getErr   error
	deleted  []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]models.Session)}
}

func (s *memoryStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *memoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	s.deleted = append(s.deleted, token)
	return nil
}

func TestManager_StartThenResolve(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, clockwork.NewFakeClock())
	ctx := context.Background()

	session, err := m.Start(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, session.Token, 2*tokenBytes)

	userID, err := m.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.UserID(42), userID)
}

func TestManager_ResolveUnknownOrEmpty(t *testing.T) {
	m := NewManager(newMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	_, err := m.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ExpiredSessionIsDeleted(t *testing.T) {
	store := newMemoryStore()
	clock := clockwork.NewFakeClock()
	m := NewManager(store, time.Minute, clock)
	ctx := context.Background()

	session, err := m.Start(ctx, 1)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = m.Resolve(ctx, session.Token)

	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{session.Token}, store.deleted)
}

func TestManager_ZeroTTLNeverExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(newMemoryStore(), 0, clock)
	ctx := context.Background()

	session, err := m.Start(ctx, 1)
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.IsZero())

	clock.Advance(24 * 365 * time.Hour)
	_, err = m.Resolve(ctx, session.Token)
	assert.NoError(t, err)
}

func TestManager_StoreErrorIsWrapped(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	m := NewManager(store, time.Hour, nil)

	_, err := m.Resolve(context.Background(), "token")

	assert.ErrorIs(t, err, store.getErr)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_End(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, nil)
	ctx := context.Background()

	session, err := m.Start(ctx, 5)
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, session.Token))
	_, err = m.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, m.End(ctx, ""))
}

func TestManager_ConcurrentResolve(t *testing.T) {
	m := NewManager(newMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	session, err := m.Start(ctx, 9)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID, err := m.Resolve(ctx, session.Token)
			assert.NoError(t, err)
			assert.Equal(t, models.UserID(9), userID)
		}()
	}
	wg.Wait()
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}
