package worker

import (
	"github.com/okian/matchengine/pkg/logger"
)

// Option applies a configuration option to the BatchWorker.
type Option func(*BatchWorker)

// WithBatchSize caps the items claimed per run. Values above MaxBatchSize are clamped.
func WithBatchSize(n int) Option {
	return func(w *BatchWorker) {
		if n > 0 {
			w.batchSize = min(n, MaxBatchSize)
		}
	}
}

// WithSweepCap caps the stale pairs recomputed per sweep item.
func WithSweepCap(n int) Option {
	return func(w *BatchWorker) {
		if n > 0 {
			w.sweepCap = n
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *BatchWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
