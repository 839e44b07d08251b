package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/matchengine/internal/adapters/repository/postgres"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

func TestPostgresQueue_Integration(t *testing.T) {
	url := os.Getenv("MATCH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MATCH_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := postgres.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()
	if _, err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.Exec(ctx, "TRUNCATE recompute_queue"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	q := NewPostgresQueue(conn, 2, types.FixedClock{At: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)})

	sweep, err := q.Enqueue(ctx, model.QueueItem{StudentID: "s1", Target: model.Sweep(), Priority: 1, Reason: "schedule_created"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pair, _ := q.Enqueue(ctx, model.QueueItem{StudentID: "s2", Target: model.Specific("l1"), Priority: 5})

	items, err := q.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(items) != 2 || items[0].ID != pair.ID || !items[1].Target.IsSweep() {
		t.Fatalf("unexpected claim order: %+v", items)
	}
	if id, _ := items[0].Target.ListingID(); id != "l1" {
		t.Errorf("expected listing l1, got %q", id)
	}

	if err := q.MarkProcessed(ctx, sweep.ID); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if err := q.MarkProcessed(ctx, sweep.ID); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending, got %v", err)
	}

	failed, err := q.MarkFailed(ctx, pair.ID, errors.New("boom"))
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !failed.Pending() || failed.Attempts != 1 || failed.LastError != "boom" {
		t.Errorf("expected pending retry, got %+v", failed)
	}
	dead, _ := q.MarkFailed(ctx, pair.ID, errors.New("boom"))
	if dead.Status != model.QueueDead {
		t.Errorf("expected dead, got %+v", dead)
	}

	if n, _ := q.Pending(ctx); n != 0 {
		t.Errorf("expected 0 pending, got %d", n)
	}
	if _, err := q.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
