package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger deletes persisted credentials untouched since cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeWorker periodically drops credentials of browsers that never came back.
type PurgeWorker struct {
	store    Purger
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewPurgeWorker builds a worker with sane defaults.
func NewPurgeWorker(store Purger, maxAge, interval time.Duration, logger *zerolog.Logger) *PurgeWorker {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	w := &PurgeWorker{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	if logger != nil {
		w.logger = logger.With().Str("component", "purge_worker").Logger()
	}
	return w
}

// RunOnce purges once and returns how many credentials were removed.
func (w *PurgeWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.store.PurgeOlderThan(ctx, w.now().Add(-w.maxAge))
	if err != nil {
		w.logger.Error().Err(err).Msg("purge stale credentials")
		return 0, err
	}
	if n > 0 {
		w.logger.Info().Int64("purged", n).Msg("stale credentials purged")
	}
	return n, nil
}

// Start purges immediately and then every interval; stops when ctx is done.
func (w *PurgeWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("max_age", w.maxAge).Msg("purge worker started")
	defer w.logger.Info().Msg("purge worker stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		_, _ = w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
