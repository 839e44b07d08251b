package service

import (
	"time"

	"github.com/okian/matchengine/internal/adapters/mq/queue"
	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/scoring"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store for profiles, schedules and scores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScoreCache replaces the store's score cache, e.g. with a Redis decorator.
func WithScoreCache(cache repository.ScoreCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.scores = cache
		}
	}
}

// WithQueue sets the recompute queue.
func WithQueue(q queue.Queue) Option {
	return func(s *Service) {
		if q != nil {
			s.queue = q
		}
	}
}

// WithTransactor makes invalidations and schedule creation commit their
// writes in one transaction.
func WithTransactor(t Transactor) Option {
	return func(s *Service) {
		s.tx = t
	}
}

// WithScorer sets the scoring engine.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithClock sets the clock used for timestamps and default windows.
func WithClock(clock types.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchSize caps the items claimed per batch run.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSweepCap caps the stale pairs recomputed per sweep item.
func WithSweepCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepCap = n
		}
	}
}

// WithDefaultPriority sets the priority of invalidation sweeps.
func WithDefaultPriority(p int) Option {
	return func(s *Service) {
		s.defaultPriority = p
	}
}

// WithBaselineHours sets the weekly availability used without an override.
func WithBaselineHours(h float64) Option {
	return func(s *Service) {
		if h >= 0 {
			s.baselineHours = h
		}
	}
}

// WithSignalWeights sets scoring weights by signal name.
func WithSignalWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.signalWeights = weights
	}
}

// WithWindowWeeks sets the default and maximum availability horizons.
func WithWindowWeeks(defaultWeeks, maxWeeks int) Option {
	return func(s *Service) {
		if maxWeeks > 0 {
			s.maxWindow = maxWeeks
		}
		if defaultWeeks > 0 && defaultWeeks <= s.maxWindow {
			s.defaultWindow = defaultWeeks
		}
	}
}

// WithRecomputeInterval runs the batch worker in-process on this interval. 0 disables it.
func WithRecomputeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.recomputeInterval = d
		}
	}
}
