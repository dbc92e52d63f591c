package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/utils"
)

// AuthHandler signs console operators in and out.
type AuthHandler struct {
	sessions *service.SessionService
	limiter  *middleware.LoginRateLimiter
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *service.SessionService, limiter *middleware.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{sessions: sessions, limiter: limiter}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=3"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		n := notice.RequiredFields
		utils.ErrorWithNotice(c, 400, "INVALID_REQUEST", "Invalid request body", nil, &n)
		return
	}

	ip := c.ClientIP()
	if h.limiter.Blocked(ip) {
		n := notice.TooManyAttempts
		utils.ErrorWithNotice(c, 429, "TOO_MANY_REQUESTS", "Too many failed sign-in attempts", nil, &n)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) && !h.limiter.Fail(ip) {
			n := notice.TooManyAttempts
			utils.ErrorWithNotice(c, 429, "TOO_MANY_REQUESTS", "Too many failed sign-in attempts", nil, &n)
			return
		}
		middleware.Fail(c, err)
		return
	}
	h.limiter.Reset(ip)

	n := notice.Welcome.WithRedirect(notice.OrdersPath)
	utils.SuccessWithNotice(c, 200, "Login successful", gin.H{
		"token": session.Token,
		"user":  session.User,
	}, &n)
}

// Logout handles POST /v1/auth/logout. Token and user are cleared together.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		middleware.Fail(c, err)
		return
	}
	n := notice.SignedOut
	utils.SuccessWithNotice(c, 200, "Logged out", nil, &n)
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.GetSession(c)
	utils.Success(c, 200, "Session retrieved successfully", gin.H{
		"user":          session.User,
		"issuedAt":      session.IssuedAt,
		"authenticated": true,
	})
}
