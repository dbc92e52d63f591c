package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/utils"
)

// Storage keys of a persisted session.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// SessionStore persists the token and the serialized user of a session.
// Both keys are written and removed together.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Load(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	Name() string
}

// storedUser is the serialized form under UserKey.
type storedUser struct {
	User     models.User `json:"user"`
	IssuedAt time.Time   `json:"issuedAt"`
}

func sessionKey(token, name string) string {
	return fmt.Sprintf("session:%s:%s", token, name)
}

// RedisSessionStore keeps sessions in Redis.
type RedisSessionStore struct {
	redis *RedisClient
}

// NewRedisSessionStore creates a RedisSessionStore.
func NewRedisSessionStore(redis *RedisClient) *RedisSessionStore {
	return &RedisSessionStore{redis: redis}
}

func (s *RedisSessionStore) Name() string { return "redis" }

// Save writes both keys in one transaction.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(storedUser{User: session.User, IssuedAt: session.IssuedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}
	if err := s.redis.SetPair(ctx,
		sessionKey(session.Token, TokenKey), session.Token,
		sessionKey(session.Token, UserKey), string(payload),
		ttl,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the session for token. A half-present or unreadable pair is
// removed and reported as ErrSessionNotFound.
func (s *RedisSessionStore) Load(ctx context.Context, token string) (*models.Session, error) {
	tokenKey, userKey := sessionKey(token, TokenKey), sessionKey(token, UserKey)
	vals, found, err := s.redis.GetMany(ctx, tokenKey, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found[0] && !found[1] {
		return nil, utils.ErrSessionNotFound
	}
	session, ok := decodeSession(vals[0], found[0], vals[1], found[1], token)
	if !ok {
		log.Warn().Msg("Discarding inconsistent session pair")
		_ = s.redis.Delete(ctx, tokenKey, userKey)
		return nil, utils.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes both keys.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.redis.Delete(ctx, sessionKey(token, TokenKey), sessionKey(token, UserKey)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func decodeSession(tokenVal string, tokenFound bool, userVal string, userFound bool, token string) (*models.Session, bool) {
	if !tokenFound || !userFound || tokenVal != token {
		return nil, false
	}
	var su storedUser
	if err := json.Unmarshal([]byte(userVal), &su); err != nil {
		return nil, false
	}
	return &models.Session{User: su.User, Token: tokenVal, IssuedAt: su.IssuedAt}, true
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Name() string { return "memory" }

func (s *MemorySessionStore) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(storedUser{User: session.User, IssuedAt: session.IssuedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.Token] = memoryEntry{
		values: map[string]string{
			TokenKey: session.Token,
			UserKey:  string(payload),
		},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemorySessionStore) Load(ctx context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return nil, utils.ErrSessionNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, token)
		return nil, utils.ErrSessionNotFound
	}
	tokenVal, tokenFound := e.values[TokenKey]
	userVal, userFound := e.values[UserKey]
	session, ok := decodeSession(tokenVal, tokenFound, userVal, userFound, token)
	if !ok {
		delete(s.entries, token)
		return nil, utils.ErrSessionNotFound
	}
	return session, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
