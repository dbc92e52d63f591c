package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/order_console/internal/cache"
	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/state"
	"github.com/GTDGit/order_console/internal/utils"
)

// SessionChange is published whenever a session starts or ends.
type SessionChange struct {
	Token    string          `json:"-"`
	Session  *models.Session `json:"session,omitempty"`
	SignedIn bool            `json:"signedIn"`
}

// SessionService signs operators in and out and resolves bearer tokens.
type SessionService struct {
	store   cache.SessionStore
	secret  string
	ttl     time.Duration
	auth    config.AuthConfig
	changes *state.Store[SessionChange]
	now     func() time.Time
}

// NewSessionService constructs a SessionService backed by store.
func NewSessionService(store cache.SessionStore, cfg *config.Config) *SessionService {
	return &SessionService{
		store:   store,
		secret:  cfg.JWTSecret,
		ttl:     cfg.SessionTTL,
		auth:    cfg.Auth,
		changes: state.New(SessionChange{}),
		now:     time.Now,
	}
}

// Changes exposes the observable session state.
func (s *SessionService) Changes() *state.Store[SessionChange] {
	return s.changes
}

// Login starts a session. Without an operator account configured any
// well-formed email and password are accepted and a fresh identity is
// issued; with one, the password is checked against its bcrypt hash.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: malformed email", utils.ErrValidation)
	}
	local, _, _ := strings.Cut(email, "@")

	user := models.User{Email: email, Name: local}
	if s.auth.CredentialMode() {
		if !strings.EqualFold(email, s.auth.OperatorEmail) {
			log.Warn().Str("email", email).Msg("Login rejected: unknown operator")
			return nil, utils.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.auth.OperatorPasswordHash), []byte(password)); err != nil {
			log.Warn().Str("email", email).Msg("Login rejected: password mismatch")
			return nil, utils.ErrInvalidCredentials
		}
		user.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
	} else {
		user.ID = uuid.NewString()
	}

	issuedAt := s.now()
	token, err := utils.GenerateSessionToken(s.secret, user, issuedAt, s.ttl)
	if err != nil {
		return nil, err
	}
	session := &models.Session{User: user, Token: token, IssuedAt: issuedAt}
	if err := s.store.Save(ctx, session, s.ttl); err != nil {
		return nil, err
	}

	s.changes.Set(SessionChange{Token: token, Session: session, SignedIn: true})
	log.Info().Str("user_id", user.ID).Str("email", email).Msg("Login successful")
	return session, nil
}

// Logout ends the session of token. Token and user are removed together.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	s.changes.Set(SessionChange{Token: token, SignedIn: false})
	log.Info().Msg("Session signed out")
	return nil
}

// Authenticate verifies token and returns its stored session.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, utils.ErrInvalidToken
	}
	claims, err := utils.ParseSessionToken(s.secret, token)
	if err != nil {
		return nil, err
	}
	session, err := s.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.User.ID != claims.Subject {
		return nil, utils.ErrInvalidToken
	}
	return session, nil
}

// IsAuthenticated reports whether token belongs to a live session.
func (s *SessionService) IsAuthenticated(ctx context.Context, token string) bool {
	_, err := s.Authenticate(ctx, token)
	if err != nil && !errors.Is(err, utils.ErrInvalidToken) && !errors.Is(err, utils.ErrSessionNotFound) {
		log.Error().Err(err).Msg("Session lookup failed")
	}
	return err == nil
}

// Current returns the session of token.
func (s *SessionService) Current(ctx context.Context, token string) (*models.Session, error) {
	return s.Authenticate(ctx, token)
}
