package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimiter(t *testing.T) {
	rl := NewLoginRateLimiter(3, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.mu.Lock()
	rl.now = func() time.Time { return now }
	rl.mu.Unlock()

	assert.True(t, rl.Fail("1.1.1.1"))
	assert.True(t, rl.Fail("1.1.1.1"))
	assert.False(t, rl.Blocked("1.1.1.1"))
	assert.False(t, rl.Fail("1.1.1.1"))
	assert.True(t, rl.Blocked("1.1.1.1"))
	assert.False(t, rl.Blocked("2.2.2.2"))

	now = now.Add(2 * time.Minute)
	assert.False(t, rl.Blocked("1.1.1.1"))
	assert.True(t, rl.Fail("1.1.1.1"))

	rl.Reset("1.1.1.1")
	assert.False(t, rl.Blocked("1.1.1.1"))
}
