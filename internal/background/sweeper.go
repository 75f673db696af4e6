package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgeworks/authgate/internal/stores"
)

// Sweeper periodically drops fully expired 2FA workflow entries. The bridge
// and relay stores evict through their own cache janitors; the 2FA store
// holds multi-field entries and needs this sweep to bound memory.
type Sweeper struct {
	states   *stores.TwoFAStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(states *stores.TwoFAStore, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		states:   states,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.stopCh:
			s.logger.Info("state sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("state sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep() {
	removed := s.states.Sweep()
	if removed > 0 {
		s.logger.Info("swept expired 2FA state", slog.Int("entries_removed", removed))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
