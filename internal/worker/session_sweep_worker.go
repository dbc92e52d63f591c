package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper drops expired sessions and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// SessionReaper releases what sessions that are no longer active left open.
type SessionReaper interface {
	CloseInactive(ctx context.Context, active func(ctx context.Context, token string) bool) int
}

// SessionChecker reports whether a session token is still live.
type SessionChecker interface {
	IsAuthenticated(ctx context.Context, token string) bool
}

// SessionSweepWorker periodically removes expired sessions from an
// in-process session store and releases the editors and event streams that
// expired sessions left open.
type SessionSweepWorker struct {
	store    Sweeper // nil when the store expires entries itself
	sessions SessionChecker
	reapers  []SessionReaper
	interval time.Duration
}

// NewSessionSweepWorker constructs a SessionSweepWorker. store may be nil.
func NewSessionSweepWorker(store Sweeper, sessions SessionChecker, interval time.Duration, reapers ...SessionReaper) *SessionSweepWorker {
	return &SessionSweepWorker{
		store:    store,
		sessions: sessions,
		reapers:  reapers,
		interval: interval,
	}
}

// Start begins the sweep loop and returns when ctx is cancelled.
func (w *SessionSweepWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Session sweep worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting session sweep worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Session sweep worker stopped")
			return
		}
	}
}

func (w *SessionSweepWorker) run(ctx context.Context) {
	if w.store != nil {
		if removed := w.store.Sweep(); removed > 0 {
			log.Info().Int("removed", removed).Msg("Expired sessions swept")
		}
	}
	if w.sessions == nil {
		return
	}
	closed := 0
	for _, r := range w.reapers {
		closed += r.CloseInactive(ctx, w.sessions.IsAuthenticated)
	}
	if closed > 0 {
		log.Info().Int("closed", closed).Msg("Released resources of expired sessions")
	}
}
