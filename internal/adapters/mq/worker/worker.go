// Package worker drains the recompute queue in bounded, sequential batches.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/dedupe"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
	"github.com/okian/matchengine/pkg/metrics"
)

// Batch bounds. A run never claims more than MaxBatchSize items.
const (
	DefaultBatchSize = 50
	MaxBatchSize     = 50
	DefaultSweepCap  = 20
)

// Queue is the part of the recompute queue the worker drives.
type Queue interface {
	Claim(ctx context.Context, limit int) ([]model.QueueItem, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) (model.QueueItem, error)
	Pending(ctx context.Context) (int, error)
}

// Recomputer recomputes one pair, bypassing the cache.
type Recomputer interface {
	Recompute(ctx context.Context, key model.PairKey) error
}

// StaleSource lists a student's stale cached scores.
type StaleSource interface {
	StaleForStudent(ctx context.Context, studentID string, limit int) ([]model.MatchScore, error)
}

// Result summarizes one run.
type Result struct {
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
	Errors    int `json:"errors"`
	BatchSize int `json:"batchSize"`
}

// BatchWorker processes claimed items one at a time.
type BatchWorker struct {
	queue      Queue
	recomputer Recomputer
	stale      StaleSource
	batchSize  int
	sweepCap   int
	running    atomic.Bool
	logger     logger.Logger
}

// NewBatchWorker creates a worker with configuration options.
func NewBatchWorker(queue Queue, recomputer Recomputer, stale StaleSource, opts ...Option) *BatchWorker {
	w := &BatchWorker{
		queue:      queue,
		recomputer: recomputer,
		stale:      stale,
		batchSize:  DefaultBatchSize,
		sweepCap:   DefaultSweepCap,
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BatchSize returns the claim limit.
func (w *BatchWorker) BatchSize() int { return w.batchSize }

// SweepCap returns the per-sweep pair limit.
func (w *BatchWorker) SweepCap() int { return w.sweepCap }

// Run claims one batch and processes it. A claim failure or an overlapping
// run are the only errors; item and pair failures are recorded on the queue
// and counted in the result. Cancellation stops the run between items and
// leaves the rest pending.
func (w *BatchWorker) Run(ctx context.Context) (Result, error) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug(ctx, "previous batch still running, skipping run")
		return Result{}, apperr.WrapKind("worker.Run", apperr.ErrConflict, ErrRunInProgress)
	}
	defer w.running.Store(false)

	start := time.Now()

	items, err := w.queue.Claim(ctx, w.batchSize)
	if err != nil {
		metrics.RecordBatchRun("claim_failed", 0, 0, msSince(start), time.Now().Unix())
		metrics.RecordErrorByComponent("worker", "claim_failed")
		w.logger.Error(ctx, "failed to claim batch", logger.Error(err))
		return Result{}, apperr.WrapKind("worker.Run", apperr.ErrInternal, err)
	}

	res := Result{BatchSize: len(items)}
	seen := dedupe.NewPairDeduper()

	for _, item := range items {
		if ctx.Err() != nil {
			w.logger.Warn(ctx, "batch interrupted", logger.Int("processed", res.Processed))
			break
		}
		if err := w.processItem(ctx, item, seen); err != nil {
			res.Errors++
			w.fail(ctx, item, err)
			continue
		}
		if err := w.queue.MarkProcessed(ctx, item.ID); err != nil {
			res.Errors++
			metrics.RecordErrorByComponent("worker", "mark_processed_failed")
			w.logger.Error(ctx, "failed to mark item processed", logger.QueueItemID(item.ID), logger.Error(err))
			continue
		}
		res.Processed++
	}

	res.Remaining = w.remaining(ctx, len(items)-res.Processed)
	metrics.UpdateQueuePending(res.Remaining)

	outcome := "ok"
	if res.Errors > 0 {
		outcome = "partial"
	}
	metrics.RecordBatchRun(outcome, res.BatchSize, res.Processed, msSince(start), time.Now().Unix())
	w.logger.Info(ctx, "batch finished",
		logger.Int("batchSize", res.BatchSize),
		logger.Int("processed", res.Processed),
		logger.Int("errors", res.Errors),
		logger.Int("remaining", res.Remaining),
		logger.Int("pairs", seen.Size()),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (w *BatchWorker) processItem(ctx context.Context, item model.QueueItem, seen dedupe.Deduper) error {
	if listingID, ok := item.Target.ListingID(); ok {
		key := model.PairKey{StudentID: item.StudentID, ListingID: listingID}
		if seen.SeenAndRecord(key) {
			return nil
		}
		if err := w.recomputer.Recompute(ctx, key); err != nil {
			seen.Unrecord(key)
			return fmt.Errorf("recompute %s: %w", key, err)
		}
		return nil
	}
	return w.sweep(ctx, item, seen)
}

// sweep recomputes up to sweepCap stale pairs of the item's student. Pair
// failures are skipped. A failed pair may keep its place at the front of the
// stale order, so each further page asks for one more row per skipped pair.
// At most 2*sweepCap pairs are tried per sweep.
func (w *BatchWorker) sweep(ctx context.Context, item model.QueueItem, seen dedupe.Deduper) error {
	var recomputed, skipped, tried int
	budget := 2 * w.sweepCap
	visited := make(map[model.PairKey]struct{})

	for recomputed < w.sweepCap && tried < budget {
		limit := w.sweepCap + skipped
		stale, err := w.stale.StaleForStudent(ctx, item.StudentID, limit)
		if err != nil {
			return fmt.Errorf("list stale scores: %w", err)
		}

		fresh := 0
		for _, sc := range stale {
			if recomputed >= w.sweepCap || tried >= budget {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			key := sc.Key()
			if _, ok := visited[key]; ok {
				continue
			}
			visited[key] = struct{}{}
			fresh++

			if seen.SeenAndRecord(key) {
				skipped++
				metrics.RecordSweepPair("duplicate")
				continue
			}
			tried++

			err := w.recomputer.Recompute(ctx, key)
			switch {
			case err == nil:
				recomputed++
				metrics.RecordSweepPair("recomputed")
			case errors.Is(err, apperr.ErrNotFound):
				skipped++
				metrics.RecordSweepPair("pruned")
				w.logger.Info(ctx, "dropped pair with missing student or listing",
					logger.QueueItemID(item.ID),
					logger.StudentID(key.StudentID),
					logger.ListingID(key.ListingID),
				)
			default:
				seen.Unrecord(key)
				skipped++
				metrics.RecordSweepPair("failed")
				w.logger.Warn(ctx, "skipping pair in sweep",
					logger.QueueItemID(item.ID),
					logger.StudentID(key.StudentID),
					logger.ListingID(key.ListingID),
					logger.Error(err),
				)
			}
		}
		if fresh == 0 || len(stale) < limit {
			return nil
		}
	}
	return nil
}

func (w *BatchWorker) fail(ctx context.Context, item model.QueueItem, cause error) {
	metrics.RecordErrorByComponent("worker", "item_failed")
	updated, err := w.queue.MarkFailed(ctx, item.ID, cause)
	if err != nil {
		w.logger.Error(ctx, "failed to record item failure",
			logger.QueueItemID(item.ID), logger.Error(err), logger.String("cause", cause.Error()))
		return
	}
	fields := []logger.Field{
		logger.QueueItemID(item.ID),
		logger.StudentID(item.StudentID),
		logger.String("target", item.Target.String()),
		logger.Int("attempts", updated.Attempts),
		logger.Error(cause),
	}
	if updated.Status == model.QueueDead {
		w.logger.Error(ctx, "queue item dead after max attempts", fields...)
		return
	}
	w.logger.Warn(ctx, "queue item failed, will retry", fields...)
}

// remaining counts pending items, falling back to the unprocessed part of the batch.
func (w *BatchWorker) remaining(ctx context.Context, fallback int) int {
	n, err := w.queue.Pending(ctx)
	if err != nil {
		w.logger.Warn(ctx, "failed to count pending items", logger.Error(err))
		return fallback
	}
	return n
}

// RunEvery runs a batch on every tick until ctx is done. A tick that finds
// another run of this worker in progress, for example one started through
// the cron route, is skipped.
func (w *BatchWorker) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := w.Run(ctx)
			switch {
			case errors.Is(err, ErrRunInProgress):
			case err != nil:
				w.logger.Error(ctx, "scheduled batch failed", logger.Error(err))
			}
		}
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
