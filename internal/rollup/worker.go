package rollup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/worktrace/worktrace/internal/store"
)

// Config controls aggregation cadence and the retention window.
type Config struct {
	Interval      time.Duration // how often to aggregate
	RetentionDays int           // heartbeats older than this get rolled up
	DeleteRolled  bool          // delete raw heartbeats after totals are written
}

// Worker folds raw heartbeats older than the retention window into daily
// totals. Aggregation is idempotent: totals are set, not added, so a crash
// between the upsert pass and the delete pass re-rolls the same rows to the
// same values on the next cycle.
type Worker struct {
	store store.Store
	log   zerolog.Logger
	cfg   Config
	now   func() time.Time

	// mu serializes cycles; a tick that fires while a cycle is still running
	// is skipped rather than queued.
	mu sync.Mutex
}

// ErrRollupRunning is returned when a cycle is requested while one is active.
var ErrRollupRunning = errors.New("rollup cycle already running")

// NewWorker constructs a Worker from dependencies.
func NewWorker(s store.Store, cfg Config, log zerolog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 31
	}
	return &Worker{
		store: s,
		log:   log,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the aggregation loop until ctx is canceled. The first cycle runs
// immediately so a restarted worker catches up without waiting an interval.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Dur("interval", w.cfg.Interval).
		Int("retention_days", w.cfg.RetentionDays).
		Bool("delete_rolled", w.cfg.DeleteRolled).
		Msg("rollup worker starting")

	if err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrRollupRunning) {
		w.log.Error().Err(err).Msg("rollup cycle")
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("rollup worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrRollupRunning) {
				w.log.Error().Err(err).Msg("rollup cycle")
			}
		}
	}
}

// RunOnce executes one aggregation cycle: bucket heartbeats older than the
// cutoff into (date, document, account) totals, upsert the totals, then
// delete the rolled heartbeats. Returns ErrRollupRunning when a cycle is
// already in flight.
func (w *Worker) RunOnce(ctx context.Context) error {
	if !w.mu.TryLock() {
		return ErrRollupRunning
	}
	defer w.mu.Unlock()

	cutoff := w.Cutoff()
	counts, err := w.store.Heartbeats().CountByDay(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("aggregate heartbeats: %w", err)
	}
	if len(counts) == 0 {
		w.log.Debug().Time("cutoff", cutoff).Msg("nothing to roll up")
		return nil
	}

	for _, c := range counts {
		if _, err := w.store.DailyTotals().Upsert(ctx, c.ToDailyTotal()); err != nil {
			// Stop before deleting anything; the raw rows survive and the
			// next cycle retries the whole batch.
			return fmt.Errorf("upsert total %s/%s: %w", c.Date, c.DocumentID, err)
		}
	}

	var deleted int64
	if w.cfg.DeleteRolled {
		deleted, err = w.store.Heartbeats().DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("delete rolled heartbeats: %w", err)
		}
	}

	w.log.Info().
		Time("cutoff", cutoff).
		Int("buckets", len(counts)).
		Int64("deleted", deleted).
		Msg("rollup cycle complete")
	return nil
}

// Cutoff returns the boundary between rolled and live heartbeats: midnight
// UTC RetentionDays ago. Heartbeats recorded strictly before it are rolled.
func (w *Worker) Cutoff() time.Time {
	return w.now().Add(-time.Duration(w.cfg.RetentionDays) * 24 * time.Hour).Truncate(24 * time.Hour)
}
