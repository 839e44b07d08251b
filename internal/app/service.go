// Package service wires the match engine components together and exposes the
// operations the HTTP API and the batch entry points call.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/matchengine/internal/adapters/mq/queue"
	"github.com/okian/matchengine/internal/adapters/mq/worker"
	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/availability"
	"github.com/okian/matchengine/internal/domain/scoring"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
	"github.com/okian/matchengine/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultPriority          = 5
	DefaultWindowWeeks       = 4
	MaxWindowWeeks           = 52
	ReasonScheduleCreated    = "schedule_created"
	ReasonRecomputeRequested = "recompute_requested"
	pairPriorityBoost        = 1
	stopTimeout              = 30 * time.Second
)

// Service implements the match engine operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	scores     repository.ScoreCache
	queue      queue.Queue
	tx         Transactor
	worker     *worker.BatchWorker
	calculator *availability.Calculator
	scorer     scoring.Scorer
	clock      types.Clock

	// Configuration
	batchSize         int
	sweepCap          int
	defaultPriority   int
	baselineHours     float64
	signalWeights     map[string]float64
	defaultWindow     int
	maxWindow         int
	recomputeInterval time.Duration

	// State
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastRun   *worker.Result
	lastRunAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service. Without WithStore and WithQueue it runs on in-memory adapters.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           types.SystemClock{},
		batchSize:       worker.DefaultBatchSize,
		sweepCap:        worker.DefaultSweepCap,
		defaultPriority: DefaultPriority,
		baselineHours:   availability.DefaultBaselineHours,
		defaultWindow:   DefaultWindowWeeks,
		maxWindow:       MaxWindowWeeks,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithClock(s.clock))
	}
	if s.scores == nil {
		s.scores = s.store
	}
	if s.queue == nil {
		s.queue = queue.NewInMemoryQueue(queue.WithClock(s.clock))
	}
	if s.scorer == nil {
		s.scorer = scoring.NewEngine(scoring.WithWeightsFromConfig(s.signalWeights))
	}
	s.calculator = availability.New(availability.WithBaseline(s.baselineHours))
	s.worker = worker.NewBatchWorker(s.queue, s, s.scores,
		worker.WithBatchSize(s.batchSize),
		worker.WithSweepCap(s.sweepCap),
	)

	return s
}

// Start launches the in-process recompute ticker when an interval is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting match engine service...")

	if s.recomputeInterval > 0 {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		s.done = make(chan struct{})
		go func() {
			defer close(s.done)
			s.worker.RunEvery(runCtx, s.recomputeInterval)
		}()
	}

	s.started = true
	s.logger.Info(ctx, "match engine service started",
		logger.Int("batchSize", s.batchSize),
		logger.Int("sweepCap", s.sweepCap),
		logger.Duration("recomputeInterval", s.recomputeInterval),
	)
	return nil
}

// Stop cancels the recompute ticker and waits for an in-flight batch to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping match engine service...")

	if s.cancel != nil {
		s.cancel()
		select {
		case <-s.done:
		case <-time.After(stopTimeout):
			s.logger.Warn(context.Background(), "recompute ticker did not stop in time")
		}
		s.cancel = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "match engine service stopped")
}

// RunBatch drains one batch of the recompute queue.
func (s *Service) RunBatch(ctx context.Context) (worker.Result, error) {
	res, err := s.worker.Run(ctx)
	if err != nil {
		return worker.Result{}, err
	}

	s.mu.Lock()
	s.lastRun = &res
	s.lastRunAt = s.clock.Now()
	s.mu.Unlock()
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"batchSize":         s.worker.BatchSize(),
		"sweepCap":          s.worker.SweepCap(),
		"defaultPriority":   s.defaultPriority,
		"baselineHours":     s.calculator.Baseline(),
		"recomputeInterval": s.recomputeInterval.String(),
	}
	if e, ok := s.scorer.(*scoring.Engine); ok {
		stats["signalWeights"] = e.Weights().Map()
	}

	if pending, err := s.queue.Pending(context.Background()); err == nil {
		stats["pendingItems"] = pending
		metrics.UpdateQueuePending(pending)
	}

	if s.lastRun != nil {
		stats["lastRun"] = map[string]interface{}{
			"at":        s.lastRunAt.Format(time.RFC3339),
			"processed": s.lastRun.Processed,
			"remaining": s.lastRun.Remaining,
			"errors":    s.lastRun.Errors,
			"batchSize": s.lastRun.BatchSize,
		}
	}

	return stats
}
