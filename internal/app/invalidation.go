package service

import (
	"context"

	"github.com/okian/matchengine/internal/adapters/mq/queue"
	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
	"github.com/okian/matchengine/pkg/metrics"
)

// Transactor runs fn against a store and queue whose writes commit or roll back together.
type Transactor interface {
	InTx(ctx context.Context, fn func(store repository.Store, q queue.Queue) error) error
}

// staleEvictor is implemented by read-through score caches. Stale marks
// committed inside a transaction bypass the cache, so its entries are
// dropped after the commit.
type staleEvictor interface {
	EvictStudent(ctx context.Context, studentID string)
	EvictListing(ctx context.Context, listingID string)
}

// unit is the set of adapters one invalidation writes through.
type unit struct {
	schedules repository.ScheduleStore
	scores    repository.ScoreCache
	queue     queue.Queue
}

// atomically runs fn in a transaction when a Transactor is configured. Without
// one fn writes straight through the service adapters and the caller orders
// its writes so a failure never leaves stale rows without a queued recompute.
func (s *Service) atomically(ctx context.Context, fn func(u unit) error) error {
	if s.tx == nil {
		return fn(unit{schedules: s.store, scores: s.scores, queue: s.queue})
	}
	return s.tx.InTx(ctx, func(store repository.Store, q queue.Queue) error {
		return fn(unit{schedules: store, scores: store, queue: q})
	})
}

// InvalidateStudentScores flags every cached score of the student stale and
// enqueues one sweep for the student. Both happen or neither does.
func (s *Service) InvalidateStudentScores(ctx context.Context, studentID, reason string) (model.QueueItem, error) {
	const op = "service.InvalidateStudentScores"

	if studentID == "" {
		return model.QueueItem{}, apperr.WrapKind(op, apperr.ErrValidation, apperr.Invalid("studentId", "is required"))
	}
	reason = reasonOrDefault(reason)

	var (
		item   model.QueueItem
		marked int
	)
	err := s.atomically(ctx, func(u unit) error {
		var err error
		item, marked, err = s.invalidateStudent(ctx, u, studentID, reason)
		return err
	})
	if err != nil {
		return model.QueueItem{}, apperr.WrapKind(op, apperr.ErrInternal, err)
	}
	s.studentInvalidated(ctx, studentID, reason, marked, item)
	return item, nil
}

// invalidateStudent enqueues the sweep before marking rows stale, so a failed
// mark never leaves stale rows without a queued sweep.
func (s *Service) invalidateStudent(ctx context.Context, u unit, studentID, reason string) (model.QueueItem, int, error) {
	item, err := u.queue.Enqueue(ctx, model.QueueItem{
		StudentID: studentID,
		Target:    model.Sweep(),
		Reason:    reason,
		Priority:  s.defaultPriority,
	})
	if err != nil {
		return model.QueueItem{}, 0, err
	}
	marked, err := u.scores.MarkStudentStale(ctx, studentID)
	if err != nil {
		return model.QueueItem{}, 0, err
	}
	return item, marked, nil
}

func (s *Service) studentInvalidated(ctx context.Context, studentID, reason string, marked int, item model.QueueItem) {
	if ev, ok := s.scores.(staleEvictor); ok && s.tx != nil {
		ev.EvictStudent(ctx, studentID)
	}
	metrics.RecordInvalidation("student", reason, marked)
	s.logger.Info(ctx, "student scores invalidated",
		logger.StudentID(studentID),
		logger.Reason(reason),
		logger.Int("marked", marked),
		logger.QueueItemID(item.ID),
	)
}

// InvalidateListingScores flags every cached score of the listing stale and
// enqueues one specific recompute per affected student. With a Transactor the
// marks and items commit together.
func (s *Service) InvalidateListingScores(ctx context.Context, listingID, reason string) ([]model.QueueItem, error) {
	const op = "service.InvalidateListingScores"

	if listingID == "" {
		return nil, apperr.WrapKind(op, apperr.ErrValidation, apperr.Invalid("listingId", "is required"))
	}
	reason = reasonOrDefault(reason)

	var items []model.QueueItem
	err := s.atomically(ctx, func(u unit) error {
		items = nil
		students, err := u.scores.MarkListingStale(ctx, listingID)
		if err != nil {
			return err
		}
		items = make([]model.QueueItem, 0, len(students))
		for _, studentID := range students {
			item, err := u.queue.Enqueue(ctx, model.QueueItem{
				StudentID: studentID,
				Target:    model.Specific(listingID),
				Reason:    reason,
				Priority:  s.defaultPriority,
			})
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		if s.tx != nil {
			items = nil
		}
		return items, apperr.WrapKind(op, apperr.ErrInternal, err)
	}

	if ev, ok := s.scores.(staleEvictor); ok && s.tx != nil {
		ev.EvictListing(ctx, listingID)
	}
	metrics.RecordInvalidation("listing", reason, len(items))
	s.logger.Info(ctx, "listing scores invalidated",
		logger.ListingID(listingID),
		logger.Reason(reason),
		logger.Int("students", len(items)),
	)
	return items, nil
}

// RequestRecompute enqueues one pair for recomputation.
func (s *Service) RequestRecompute(ctx context.Context, studentID, listingID string, priority int, reason string) (model.QueueItem, error) {
	const op = "service.RequestRecompute"

	v := &apperr.ValidationError{}
	if studentID == "" {
		v.Add("studentId", "is required")
	}
	if listingID == "" {
		v.Add("listingId", "is required")
	}
	if err := v.OrNil(); err != nil {
		return model.QueueItem{}, apperr.WrapKind(op, apperr.ErrValidation, err)
	}
	if reason == "" {
		reason = ReasonRecomputeRequested
	}

	item, err := s.queue.Enqueue(ctx, model.QueueItem{
		StudentID: studentID,
		Target:    model.Specific(listingID),
		Reason:    reason,
		Priority:  priority,
	})
	if err != nil {
		return model.QueueItem{}, apperr.WrapKind(op, apperr.ErrInternal, err)
	}
	return item, nil
}

// PairPriority is the priority used for explicit pair requests.
func (s *Service) PairPriority() int {
	return s.defaultPriority + pairPriorityBoost
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "unspecified"
	}
	return reason
}
