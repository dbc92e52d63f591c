package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/utils"
)

// Context keys set by SessionMiddleware.
const (
	sessionKey = "session"
	tokenKey   = "token"
	userIDKey  = "user_id"
)

// SessionMiddleware guards console routes behind a live session.
type SessionMiddleware struct {
	sessions *service.SessionService
}

// NewSessionMiddleware constructs a SessionMiddleware.
func NewSessionMiddleware(sessions *service.SessionService) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Handle rejects requests without a live session with 401 and a notice
// that sends the console to the login screen.
func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		session, err := m.sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			if token != "" {
				// a rejected token must not leave a half-live session behind
				if lerr := m.sessions.Logout(c.Request.Context(), token); lerr != nil {
					log.Warn().Err(lerr).Msg("Forced logout failed")
				}
			}
			n := notice.ForStatus(401, "")
			utils.ErrorWithNotice(c, 401, "UNAUTHORIZED", "Authentication required", nil, &n)
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Set(tokenKey, token)
		c.Set(userIDKey, session.User.ID)
		c.Next()
	}
}

// BearerToken reads the token from the Authorization header, falling back
// to the token query parameter used by event streams.
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// GetSession returns the authenticated session from context.
func GetSession(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}

// GetToken returns the authenticated bearer token from context.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
