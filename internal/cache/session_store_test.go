package cache

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/utils"
)

func newTestSession(token string) *models.Session {
	return &models.Session{
		User:     models.User{ID: "u-1", Email: "jane@example.com", Name: "jane"},
		Token:    token,
		IssuedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newMiniRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := NewRedisClient(&config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionStore(client), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("tok-1"), time.Hour))
	assert.True(t, mr.Exists("session:tok-1:auth_token"))
	assert.True(t, mr.Exists("session:tok-1:auth_user"))

	got, err := store.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, newTestSession("tok-1"), got)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	assert.False(t, mr.Exists("session:tok-1:auth_token"))
	assert.False(t, mr.Exists("session:tok-1:auth_user"))

	_, err = store.Load(ctx, "tok-1")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}

func TestRedisSessionStoreDiscardsHalfPair(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("tok-2"), time.Hour))
	mr.Del("session:tok-2:auth_user")

	_, err := store.Load(ctx, "tok-2")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
	assert.False(t, mr.Exists("session:tok-2:auth_token"))
}

func TestRedisSessionStoreDiscardsCorruptUser(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("tok-3"), time.Hour))
	require.NoError(t, mr.Set("session:tok-3:auth_user", "{not json"))

	_, err := store.Load(ctx, "tok-3")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}

func TestRedisSessionStoreExpires(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("tok-4"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "tok-4")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("a"), time.Minute))
	require.NoError(t, store.Save(ctx, newTestSession("b"), time.Hour))

	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "jane", got.User.Name)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "a")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))

	require.NoError(t, store.Save(ctx, newTestSession("c"), time.Second))
	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Load(ctx, "b")
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}
