package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/order_console/internal/notice"
)

func TestLoginValidatesBody(t *testing.T) {
	app := newTestApp(t, nil)
	app.token = ""

	w := app.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "nope", "password": "pw1"})
	assert.Equal(t, 400, w.Code)

	w = app.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "jane@example.com", "password": "pw"})
	assert.Equal(t, 400, w.Code)
}

func TestLoginReturnsWelcome(t *testing.T) {
	app := newTestApp(t, nil)
	app.token = ""

	w := app.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "sam@example.com", "password": "pw1"})
	require.Equal(t, 200, w.Code)
	resp := decodeJSON[errorResponse](t, w)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, notice.Welcome.Message, resp.Notice.Message)
	assert.Contains(t, w.Body.String(), `"name":"sam"`)
}

func TestMeAndLogout(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodGet, "/v1/auth/me", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "jane@example.com")

	w = app.do(t, http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, 200, w.Code)
	resp := decodeJSON[errorResponse](t, w)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, notice.LoginPath, resp.Notice.Redirect)

	w = app.do(t, http.MethodGet, "/v1/auth/me", nil)
	assert.Equal(t, 401, w.Code)
}
