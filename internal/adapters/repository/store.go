// Package repository defines the match engine persistence contracts and an
// in-memory implementation used for tests and single-node runs.
package repository

import (
	"context"

	"github.com/okian/matchengine/internal/domain/model"
)

// StudentDirectory reads the student profile the scorer needs.
type StudentDirectory interface {
	// GetStudent returns ErrNotFound if the student is unknown.
	GetStudent(ctx context.Context, id string) (model.Student, error)
}

// ListingDirectory reads the listing attributes the scorer needs.
type ListingDirectory interface {
	// GetListing returns ErrNotFound if the listing is unknown.
	GetListing(ctx context.Context, id string) (model.Listing, error)
}

// ScheduleStore persists schedule entries and serves the reference data they point to.
type ScheduleStore interface {
	// ListSchedules returns the student's entries with Season and Calendar joined,
	// ordered by creation time.
	ListSchedules(ctx context.Context, studentID string) ([]model.ScheduleEntry, error)

	// CreateSchedule stores entry and returns it with ID and timestamps filled in.
	CreateSchedule(ctx context.Context, entry model.ScheduleEntry) (model.ScheduleEntry, error)

	GetSportSeason(ctx context.Context, id string) (model.SportSeason, error)
	GetAcademicCalendar(ctx context.Context, id string) (model.AcademicCalendar, error)
}

// ScoreCache stores the latest score per (student, listing) pair.
type ScoreCache interface {
	// GetScore returns ErrNotFound if the pair was never scored.
	GetScore(ctx context.Context, key model.PairKey) (model.MatchScore, error)

	// UpsertScore inserts or replaces the row for the score's pair.
	UpsertScore(ctx context.Context, score model.MatchScore) error

	// DeleteScore removes the pair's row. Deleting a missing row is not an error.
	DeleteScore(ctx context.Context, key model.PairKey) error

	// MarkStudentStale flags every row of the student and returns how many rows it touched.
	MarkStudentStale(ctx context.Context, studentID string) (int, error)

	// MarkListingStale flags every row of the listing and returns the affected students.
	MarkListingStale(ctx context.Context, listingID string) ([]string, error)

	// StaleForStudent returns up to limit stale rows of the student, oldest computation first.
	StaleForStudent(ctx context.Context, studentID string, limit int) ([]model.MatchScore, error)
}

// Store bundles every contract backed by one database.
type Store interface {
	StudentDirectory
	ListingDirectory
	ScheduleStore
	ScoreCache
}
