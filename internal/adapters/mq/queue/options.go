package queue

import "github.com/okian/matchengine/internal/domain/types"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithMaxAttempts sets the attempt ceiling. 0 disables it; negative values are ignored.
func WithMaxAttempts(n int) Option {
	return func(q *InMemoryQueue) {
		if n >= 0 {
			q.maxAttempts = n
		}
	}
}

// WithClock sets the clock used for QueuedAt and ProcessedAt.
func WithClock(clock types.Clock) Option {
	return func(q *InMemoryQueue) {
		if clock != nil {
			q.clock = clock
		}
	}
}
