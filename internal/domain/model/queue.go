package model

import "time"

// Target says what a queue item recomputes.
type Target struct {
	listingID string
}

// Sweep targets all stale pairs of the item's student.
func Sweep() Target { return Target{} }

// Specific targets one listing.
func Specific(listingID string) Target { return Target{listingID: listingID} }

// IsSweep reports whether t is a sweep.
func (t Target) IsSweep() bool { return t.listingID == "" }

// ListingID returns the targeted listing, false for a sweep.
func (t Target) ListingID() (string, bool) {
	return t.listingID, t.listingID != ""
}

// String renders the target kind.
func (t Target) String() string {
	if t.IsSweep() {
		return "sweep"
	}
	return "specific:" + t.listingID
}

// Kind returns "sweep" or "specific".
func (t Target) Kind() string {
	if t.IsSweep() {
		return "sweep"
	}
	return "specific"
}

// QueueStatus is the lifecycle state of a queue item.
type QueueStatus string

// Queue item states. A failed attempt leaves the item pending.
const (
	QueuePending   QueueStatus = "pending"
	QueueProcessed QueueStatus = "processed"
	QueueDead      QueueStatus = "dead"
)

// QueueItem is one recompute request.
type QueueItem struct {
	ID          string
	StudentID   string
	Target      Target
	Reason      string
	Priority    int
	QueuedAt    time.Time
	ProcessedAt *time.Time
	Attempts    int
	LastError   string
	Status      QueueStatus
}

// Pending reports whether the item awaits processing.
func (q QueueItem) Pending() bool {
	return q.Status == QueuePending
}
