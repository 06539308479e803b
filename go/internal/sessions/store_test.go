package sessions

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/migrations"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, clock clockwork.Clock) (*RedisStore, *redis.Client) {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	return NewRedisStore(client, clock), client
}

func TestRedisStore_Lifecycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now().UTC().Truncate(time.Second))
	store, client := newTestRedisStore(t, clock)
	ctx := context.Background()

	token, err := GenerateToken()
	require.NoError(t, err)
	t.Cleanup(func() { client.Del(context.Background(), sessionKeyPrefix+token) })

	session := models.Session{
		Token:     token,
		UserID:    11,
		CreatedAt: clock.Now(),
		ExpiresAt: clock.Now().Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, session))

	ttl, err := client.TTL(ctx, "session:"+token).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.UserID(11), got.UserID)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// already gone
	assert.NoError(t, store.Delete(ctx, token))
}

func TestRedisStore_CorruptValueIsNotFound(t *testing.T) {
	store, client := newTestRedisStore(t, nil)
	ctx := context.Background()

	token, err := GenerateToken()
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, sessionKeyPrefix+token, "not json", time.Minute).Err())
	t.Cleanup(func() { client.Del(context.Background(), sessionKeyPrefix+token) })

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_RejectsExpiredSession(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC))
	// Create fails before any command is sent, so no server is needed.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, clock)

	err := store.Create(context.Background(), models.Session{
		Token:     "expired",
		UserID:    1,
		CreatedAt: clock.Now().Add(-2 * time.Hour),
		ExpiresAt: clock.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestManager_StartFailsWhenStoreRejects(t *testing.T) {
	managerClock := clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC))
	// The store's clock runs two hours ahead, so a one hour session is already over.
	storeClock := clockwork.NewFakeClockAt(managerClock.Now().Add(2 * time.Hour))
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })

	manager := NewManager(NewRedisStore(client, storeClock), time.Hour, managerClock)

	session, err := manager.Start(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Nil(t, session)
}

func newTestPostgresStore(t *testing.T) (*PostgresStore, models.UserID) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	require.NoError(t, migrations.Up(ctx, dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var userID models.UserID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, 'x') RETURNING id`,
		"sessions-it-"+time.Now().Format("150405.000000000"),
	).Scan(&userID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})

	return NewPostgresStore(pool), userID
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	store, userID := newTestPostgresStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	token, err := GenerateToken()
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, token, got.Token)
	assert.Equal(t, userID, got.UserID)
	assert.True(t, now.Add(time.Hour).Equal(got.ExpiresAt))

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, store.Delete(ctx, token))
}

func TestPostgresStore_UnknownToken(t *testing.T) {
	store, _ := newTestPostgresStore(t)

	_, err := store.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
