package coordinator

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires live sessions that outlived their time box,
// so observers get session.expired events without waiting for a read.
// Reads still heal expiry on their own; the sweeper only makes it prompt.
type Sweeper struct {
	sessions *SessionManager
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. A non-positive interval disables it.
func NewSweeper(sessions *SessionManager, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Enabled reports whether Run will tick
func (s *Sweeper) Enabled() bool {
	return s.interval > 0
}

// Run sweeps on every tick until ctx is cancelled. It returns nil
// immediately when the sweeper is disabled.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("session sweeper disabled")
		return nil
	}

	s.logger.Info("session sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// SweepOnce runs a single sweep and returns the number of sessions expired
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	expired, live, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return 0
	}
	if expired > 0 {
		s.logger.Info("expired stale sessions", "count", expired, "live", live)
	}
	return expired
}
