package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/order_console/internal/cache"
	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/utils"
)

func newSessionService(t *testing.T, auth config.AuthConfig) (*SessionService, *cache.MemorySessionStore) {
	t.Helper()
	store := cache.NewMemorySessionStore()
	cfg := &config.Config{JWTSecret: "test-secret", SessionTTL: time.Hour, Auth: auth}
	return NewSessionService(store, cfg), store
}

func TestLoginPlaceholderMode(t *testing.T) {
	svc, store := newSessionService(t, config.AuthConfig{})
	ctx := context.Background()

	var changes []SessionChange
	cancel := svc.Changes().Subscribe(func(c SessionChange, _ uint64) { changes = append(changes, c) })
	defer cancel()

	a, err := svc.Login(ctx, "jane.doe@example.com", "whatever")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", a.User.Name)
	assert.NotEmpty(t, a.User.ID)
	assert.NotEmpty(t, a.Token)
	assert.Equal(t, 1, store.Len())

	b, err := svc.Login(ctx, "jane.doe@example.com", "whatever")
	require.NoError(t, err)
	assert.NotEqual(t, a.User.ID, b.User.ID)
	assert.NotEqual(t, a.Token, b.Token)

	require.Len(t, changes, 2)
	assert.True(t, changes[0].SignedIn)
	assert.Equal(t, a.Token, changes[0].Token)
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	svc, _ := newSessionService(t, config.AuthConfig{})
	_, err := svc.Login(context.Background(), "not-an-email", "pw")
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestLoginCredentialMode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, _ := newSessionService(t, config.AuthConfig{
		OperatorEmail:        "ops@example.com",
		OperatorPasswordHash: string(hash),
	})
	ctx := context.Background()

	_, err = svc.Login(ctx, "ops@example.com", "wrong")
	assert.True(t, errors.Is(err, utils.ErrInvalidCredentials))
	_, err = svc.Login(ctx, "someone@example.com", "s3cret")
	assert.True(t, errors.Is(err, utils.ErrInvalidCredentials))

	a, err := svc.Login(ctx, "ops@example.com", "s3cret")
	require.NoError(t, err)
	b, err := svc.Login(ctx, "ops@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, a.User.ID, b.User.ID)
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, store := newSessionService(t, config.AuthConfig{})
	ctx := context.Background()

	s, err := svc.Login(ctx, "jane@example.com", "pw1")
	require.NoError(t, err)
	assert.True(t, svc.IsAuthenticated(ctx, s.Token))

	cur, err := svc.Current(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User, cur.User)

	require.NoError(t, svc.Logout(ctx, s.Token))
	assert.False(t, svc.IsAuthenticated(ctx, s.Token))
	assert.Equal(t, 0, store.Len())
	assert.False(t, svc.Changes().Get().SignedIn)

	_, err = svc.Authenticate(ctx, s.Token)
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	svc, _ := newSessionService(t, config.AuthConfig{})
	ctx := context.Background()

	assert.False(t, svc.IsAuthenticated(ctx, ""))
	assert.False(t, svc.IsAuthenticated(ctx, "garbage"))

	other, _ := newSessionService(t, config.AuthConfig{})
	other.secret = "different"
	s, err := other.Login(ctx, "jane@example.com", "pw1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, s.Token)
	assert.True(t, errors.Is(err, utils.ErrInvalidToken))
}
