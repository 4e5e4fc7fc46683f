package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"binsim/internal/observability"
	"binsim/internal/state"
)

// keepGenerations bounds how many snapshot rows the worker retains per
// key.
const keepGenerations = 10

// Worker periodically exports the store and writes it to the snapshot
// store. A save failure is logged and retried on the next tick; on
// shutdown the worker writes one final snapshot.
type Worker struct {
	store    *state.Store
	snaps    *SnapshotStore
	key      string
	interval time.Duration
	log      zerolog.Logger
	metrics  *observability.Metrics
}

func NewWorker(
	store *state.Store,
	snaps *SnapshotStore,
	key string,
	interval time.Duration,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		store:    store,
		snaps:    snaps,
		key:      key,
		interval: interval,
		log:      log,
		metrics:  metrics,
	}
}

// Run blocks until ctx is cancelled, saving every interval and once
// more on shutdown with a detached context.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			w.save(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			w.save(ctx)
		}
	}
}

func (w *Worker) save(ctx context.Context) {
	start := time.Now()
	snap := w.store.Snapshot()

	size, err := w.snaps.Save(ctx, w.key, snap)
	if err != nil {
		if w.metrics != nil {
			w.metrics.SnapshotErrors.Inc()
		}
		w.log.Error().Err(err).Str("key", w.key).Msg("snapshot save failed")
		return
	}
	if err := w.snaps.Prune(ctx, w.key, keepGenerations); err != nil {
		w.log.Warn().Err(err).Str("key", w.key).Msg("snapshot prune failed")
	}

	if w.metrics != nil {
		w.metrics.SnapshotSaves.Inc()
		w.metrics.SnapshotSize.Set(float64(size))
		w.metrics.SnapshotSaveDur.Observe(time.Since(start).Seconds())
	}
	w.log.Debug().
		Str("key", w.key).
		Int("size_bytes", size).
		Int("pools", len(snap.Pools)).
		Msg("snapshot saved")
}
