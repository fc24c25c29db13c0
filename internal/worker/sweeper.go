// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredLockSweeper is the part of a seat lock store the sweeper needs.
type ExpiredLockSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// LockSweeper periodically deletes lapsed seat locks. Readers already ignore
// expired locks, so a missed or failed sweep only delays storage cleanup.
type LockSweeper struct {
	store    ExpiredLockSweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewLockSweeper(store ExpiredLockSweeper, interval time.Duration, logger *slog.Logger) *LockSweeper {
	return &LockSweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled. A sweeper without a positive interval
// is disabled and returns at once.
func (w *LockSweeper) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Warn("seat lock sweeper disabled", "interval", w.interval.String())
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("seat lock sweeper started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("seat lock sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *LockSweeper) sweep(ctx context.Context) {
	swept, err := w.store.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to sweep expired seat locks", "error", err)
		}
		return
	}

	if swept > 0 {
		w.logger.Debug("swept expired seat locks", "count", swept)
	}
}
