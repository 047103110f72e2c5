// Package jobs holds periodic background work.
package jobs

import (
	"context"
	"time"

	"github.com/example/foodshare/internal/logging"
)

// Expirer marks stale listings as expired and reports how many changed.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpirySweeper periodically expires listings whose expiry date or
// availability window has passed.
type ExpirySweeper struct {
	expirer  Expirer
	interval time.Duration
}

// NewExpirySweeper creates a sweeper running every interval.
func NewExpirySweeper(expirer Expirer, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{expirer: expirer, interval: interval}
}

// Serve sweeps once immediately and then on every tick until ctx is done.
// It implements suture.Service.
func (s *ExpirySweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	n, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("expiry sweep failed")
		}
		return
	}
	if n > 0 {
		logging.Info().Int("expired", n).Msg("expired stale listings")
	}
}

func (s *ExpirySweeper) String() string { return "expiry-sweeper" }
