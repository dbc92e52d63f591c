package middleware

import (
	"sync"
	"time"
)

// LoginRateLimiter counts failed sign-ins per client IP in a fixed window.
type LoginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewLoginRateLimiter allows max failures per window and starts a cleanup loop.
func NewLoginRateLimiter(max int, window time.Duration) *LoginRateLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &LoginRateLimiter{
		attempts: make(map[string]*attemptInfo),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Blocked reports whether ip used up its failures in the current window.
func (r *LoginRateLimiter) Blocked(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.attempts[ip]
	if !ok || r.now().Sub(info.firstAt) > r.window {
		return false
	}
	return info.count >= r.max
}

// Fail records a failed attempt and reports whether ip may still try.
func (r *LoginRateLimiter) Fail(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	if !exists || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return r.max > 1
	}
	info.count++
	return info.count < r.max
}

// Reset forgets the failures of ip after a successful sign-in.
func (r *LoginRateLimiter) Reset(ip string) {
	r.mu.Lock()
	delete(r.attempts, ip)
	r.mu.Unlock()
}

// Stop ends the cleanup loop.
func (r *LoginRateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *LoginRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > r.window {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
