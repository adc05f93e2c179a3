package scheduler

import (
	"context"
	"time"

	"server/internal/infra"
)

// DefaultInterval matches the hour-granularity due check: running more often
// is harmless (dedup catches repeats), running less often misses hours.
const DefaultInterval = time.Hour

// Runner drives the checker on a fixed cadence. Scans never overlap: the next
// tick waits for the previous scan to return.
type Runner struct {
	checker  *Checker
	interval time.Duration
	logger   infra.Logger
}

// NewRunner creates a scheduler runner.
func NewRunner(checker *Checker, interval time.Duration, logger infra.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{checker: checker, interval: interval, logger: logger}
}

// Run scans once immediately, then on every tick until the context ends.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("scheduler: runner started")

	if _, err := r.checker.Scan(ctx, time.Now()); err != nil {
		r.logger.Error().Err(err).Msg("scheduler: scan failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("scheduler: runner stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := r.checker.Scan(ctx, now); err != nil {
				r.logger.Error().Err(err).Msg("scheduler: scan failed")
			}
		}
	}
}
