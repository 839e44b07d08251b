package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/okian/matchengine/internal/adapters/repository/postgres"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/metrics"
)

// PostgresQueue implements Queue on the recompute_queue table.
type PostgresQueue struct {
	db          postgres.Querier
	maxAttempts int
	clock       types.Clock
}

var _ Queue = (*PostgresQueue)(nil)

// NewPostgresQueue creates a queue over db. maxAttempts 0 disables the dead state.
func NewPostgresQueue(db postgres.Querier, maxAttempts int, clock types.Clock) *PostgresQueue {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &PostgresQueue{db: db, maxAttempts: maxAttempts, clock: clock}
}

const itemColumns = `id, student_id, listing_id, reason, priority, queued_at, processed_at, attempts, last_error, status`

func (q *PostgresQueue) Enqueue(ctx context.Context, item model.QueueItem) (model.QueueItem, error) {
	if err := validate(item); err != nil {
		metrics.RecordErrorByComponent("queue", "invalid_item")
		return model.QueueItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.QueuedAt = q.clock.Now()
	item.Status = model.QueuePending
	item.ProcessedAt = nil
	item.Attempts = 0
	item.LastError = ""

	var listingID any
	if id, ok := item.Target.ListingID(); ok {
		listingID = id
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO recompute_queue (id, student_id, listing_id, reason, priority, queued_at, attempts, status)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 'pending')`,
		item.ID, item.StudentID, listingID, item.Reason, item.Priority, item.QueuedAt,
	)
	if err != nil {
		metrics.RecordErrorByComponent("queue", "insert_failed")
		return model.QueueItem{}, fmt.Errorf("enqueue: %w", err)
	}
	metrics.RecordQueueEnqueue(item.Target.Kind())
	return item, nil
}

func (q *PostgresQueue) Claim(ctx context.Context, limit int) ([]model.QueueItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := q.db.Query(ctx, `SELECT `+itemColumns+`
		FROM recompute_queue
		WHERE status = 'pending'
		ORDER BY priority DESC, queued_at ASC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("claim: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	return items, nil
}

func (q *PostgresQueue) MarkProcessed(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE recompute_queue
		SET processed_at = $2, attempts = attempts + 1, status = 'processed'
		WHERE id = $1 AND status = 'pending'`, id, q.clock.Now())
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.missingOrDone(ctx, id)
	}
	metrics.RecordQueueProcessed()
	return nil
}

func (q *PostgresQueue) MarkFailed(ctx context.Context, id string, cause error) (model.QueueItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE recompute_queue
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN $3::int > 0 AND attempts + 1 >= $3::int THEN 'dead' ELSE 'pending' END
		WHERE id = $1 AND status = 'pending'
		RETURNING `+itemColumns, id, errorText(cause), q.maxAttempts)
	it, err := scanItem(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return model.QueueItem{}, q.missingOrDone(ctx, id)
		}
		return model.QueueItem{}, fmt.Errorf("mark failed: %w", err)
	}
	metrics.RecordQueueFailed()
	if it.Status == model.QueueDead {
		metrics.RecordQueueDead()
	}
	return it, nil
}

func (q *PostgresQueue) Pending(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM recompute_queue WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pending: %w", err)
	}
	return n, nil
}

func (q *PostgresQueue) Get(ctx context.Context, id string) (model.QueueItem, error) {
	it, err := scanItem(q.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM recompute_queue WHERE id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return model.QueueItem{}, ErrItemNotFound
		}
		return model.QueueItem{}, fmt.Errorf("get: %w", err)
	}
	return it, nil
}

func (q *PostgresQueue) missingOrDone(ctx context.Context, id string) error {
	if _, err := q.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}

func scanItem(row pgx.Row) (model.QueueItem, error) {
	var (
		it          model.QueueItem
		listingID   *string
		processedAt *time.Time
		lastError   *string
		status      string
	)
	err := row.Scan(&it.ID, &it.StudentID, &listingID, &it.Reason, &it.Priority, &it.QueuedAt,
		&processedAt, &it.Attempts, &lastError, &status)
	if err != nil {
		return model.QueueItem{}, err
	}
	if listingID != nil && *listingID != "" {
		it.Target = model.Specific(*listingID)
	} else {
		it.Target = model.Sweep()
	}
	if processedAt != nil {
		t := processedAt.UTC()
		it.ProcessedAt = &t
	}
	if lastError != nil {
		it.LastError = *lastError
	}
	it.QueuedAt = it.QueuedAt.UTC()
	it.Status = model.QueueStatus(status)
	return it, nil
}
