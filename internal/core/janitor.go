package core

// janitor.go expires idle sessions so abandoned datasets do not stay in
// memory. It runs until its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when StartSessionJanitor gets a zero interval.
const DefaultSweepInterval = 10 * time.Minute

// StartSessionJanitor sweeps expired sessions every interval. It blocks,
// so callers run it in its own goroutine.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session janitor started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			s.sweepSessions()
		}
	}
}

func (s *Service) sweepSessions() int {
	start := time.Now()
	removed := s.sessions.Sweep()
	remaining := s.sessions.Len()
	s.inst.SetActiveSessions(remaining)
	if removed > 0 {
		slog.Info("expired sessions removed",
			"removed", removed,
			"remaining", remaining,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}
