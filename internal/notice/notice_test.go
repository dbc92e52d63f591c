package notice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStatusError struct {
	status int
	msg    string
}

func (e *fakeStatusError) Error() string         { return fmt.Sprintf("status %d", e.status) }
func (e *fakeStatusError) HTTPStatus() int       { return e.status }
func (e *fakeStatusError) ServerMessage() string { return e.msg }

func TestForStatusTable(t *testing.T) {
	tests := []struct {
		status int
		server string
		want   string
	}{
		{0, "", "Server unreachable. Check your connection."},
		{400, "", "Bad request"},
		{400, "qty must be positive", "qty must be positive"},
		{401, "", "Session expired. Sign in again."},
		{403, "", "Access denied"},
		{404, "", "Resource not found"},
		{500, "", "Internal server error"},
		{502, "", "Server temporarily unavailable"},
		{503, "", "Server temporarily unavailable"},
		{504, "", "Server temporarily unavailable"},
		{418, "", "Error: 418"},
		{418, "teapot", "teapot"},
	}
	for _, tt := range tests {
		n := ForStatus(tt.status, tt.server)
		assert.Equal(t, tt.want, n.Message, "status %d", tt.status)
		assert.Equal(t, LevelError, n.Level)
	}
}

func TestUnauthorizedRedirectsToLogin(t *testing.T) {
	n := ForStatus(401, "")
	assert.Equal(t, LoginPath, n.Redirect)
	assert.True(t, ForcesLogout(401))
	assert.False(t, ForcesLogout(403))
}

func TestFromErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("load dataset: %w", &fakeStatusError{status: 404})
	assert.Equal(t, "Resource not found", FromError(err).Message)

	err = fmt.Errorf("load dataset: %w", context.DeadlineExceeded)
	assert.Equal(t, "Server unreachable. Check your connection.", FromError(err).Message)

	assert.Equal(t, Generic, FromError(errors.New("boom")))
}
