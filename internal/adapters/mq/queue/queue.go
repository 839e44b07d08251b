// Package queue implements the durable, priority-ordered recompute backlog.
//
// Items move pending -> processed on success. A failure bumps attempts and
// leaves the item pending for the next run, until the attempt ceiling moves
// it to dead.
package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/metrics"
)

// DefaultMaxAttempts is the attempt ceiling before an item goes dead.
const DefaultMaxAttempts = 10

// Queue stores recompute items.
type Queue interface {
	// Enqueue stores a new pending item and returns it with ID and QueuedAt set.
	Enqueue(ctx context.Context, item model.QueueItem) (model.QueueItem, error)

	// Claim returns up to limit pending items, highest priority first, oldest first within a priority.
	Claim(ctx context.Context, limit int) ([]model.QueueItem, error)

	// MarkProcessed sets ProcessedAt and increments attempts.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed records cause and increments attempts. The returned item reports whether it went dead.
	MarkFailed(ctx context.Context, id string, cause error) (model.QueueItem, error)

	// Pending counts items still awaiting processing.
	Pending(ctx context.Context) (int, error)

	// Get returns one item by ID.
	Get(ctx context.Context, id string) (model.QueueItem, error)
}

// validate checks fields every implementation requires before insert.
func validate(item model.QueueItem) error {
	if item.StudentID == "" {
		return ErrInvalidItem
	}
	return nil
}

// deadAfter reports whether attempts reached a positive ceiling.
func deadAfter(attempts, maxAttempts int) bool {
	return maxAttempts > 0 && attempts >= maxAttempts
}

func errorText(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}

// record is an item plus its insertion order, used to break queuedAt ties.
type record struct {
	item model.QueueItem
	seq  uint64
}

// InMemoryQueue implements Queue with a map guarded by a mutex.
type InMemoryQueue struct {
	mu          sync.Mutex
	items       map[string]*record
	seq         uint64
	maxAttempts int
	clock       types.Clock
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		items:       make(map[string]*record),
		maxAttempts: DefaultMaxAttempts,
		clock:       types.SystemClock{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *InMemoryQueue) Enqueue(_ context.Context, item model.QueueItem) (model.QueueItem, error) {
	if err := validate(item); err != nil {
		metrics.RecordErrorByComponent("queue", "invalid_item")
		return model.QueueItem{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.QueuedAt = q.clock.Now()
	item.Status = model.QueuePending
	item.ProcessedAt = nil
	item.Attempts = 0
	item.LastError = ""

	q.seq++
	q.items[item.ID] = &record{item: item, seq: q.seq}
	metrics.RecordQueueEnqueue(item.Target.Kind())
	return item, nil
}

func (q *InMemoryQueue) Claim(_ context.Context, limit int) ([]model.QueueItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]*record, 0, len(q.items))
	for _, r := range q.items {
		if r.item.Pending() {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.item.Priority != b.item.Priority {
			return a.item.Priority > b.item.Priority
		}
		if !a.item.QueuedAt.Equal(b.item.QueuedAt) {
			return a.item.QueuedAt.Before(b.item.QueuedAt)
		}
		return a.seq < b.seq
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]model.QueueItem, len(pending))
	for i, r := range pending {
		out[i] = r.item
	}
	return out, nil
}

func (q *InMemoryQueue) MarkProcessed(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if !r.item.Pending() {
		return ErrNotPending
	}
	now := q.clock.Now()
	r.item.ProcessedAt = &now
	r.item.Attempts++
	r.item.Status = model.QueueProcessed
	metrics.RecordQueueProcessed()
	return nil
}

func (q *InMemoryQueue) MarkFailed(_ context.Context, id string, cause error) (model.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.items[id]
	if !ok {
		return model.QueueItem{}, ErrItemNotFound
	}
	if !r.item.Pending() {
		return model.QueueItem{}, ErrNotPending
	}
	r.item.Attempts++
	r.item.LastError = errorText(cause)
	metrics.RecordQueueFailed()
	if deadAfter(r.item.Attempts, q.maxAttempts) {
		r.item.Status = model.QueueDead
		metrics.RecordQueueDead()
	}
	return r.item, nil
}

func (q *InMemoryQueue) Pending(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, r := range q.items {
		if r.item.Pending() {
			n++
		}
	}
	return n, nil
}

func (q *InMemoryQueue) Get(_ context.Context, id string) (model.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.items[id]
	if !ok {
		return model.QueueItem{}, ErrItemNotFound
	}
	return r.item, nil
}

// List returns every item for a student in insertion order.
func (q *InMemoryQueue) List(_ context.Context, studentID string) []model.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var recs []*record
	for _, r := range q.items {
		if r.item.StudentID == studentID {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]model.QueueItem, len(recs))
	for i, r := range recs {
		out[i] = r.item
	}
	return out
}
