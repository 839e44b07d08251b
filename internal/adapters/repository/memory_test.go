package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func TestMemoryStore_Directories(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(
		WithStudents(model.Student{ID: "stu-1", TenantID: "t1", Skills: []string{"go"}}),
		WithListings(model.Listing{ID: "lst-1", TenantID: "t1", Title: "Backend intern"}),
	)

	st, err := s.GetStudent(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, st.Skills)

	l, err := s.GetListing(ctx, "lst-1")
	require.NoError(t, err)
	assert.Equal(t, "Backend intern", l.Title)

	_, err = s.GetStudent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetListing(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	s.PutStudent(model.Student{ID: "stu-2"})
	_, err = s.GetStudent(ctx, "stu-2")
	assert.NoError(t, err)
}

func TestMemoryStore_Schedules(t *testing.T) {
	ctx := context.Background()
	season := model.SportSeason{ID: "soccer-fall", Sport: "Soccer", SeasonType: model.InSeason,
		StartMonth: time.September, EndMonth: time.November, PracticeHoursPerWeek: 10}
	term := model.AcademicCalendar{ID: "fall-25", TermName: "Fall 2025", TermType: "semester"}
	s := NewMemoryStore(
		WithClock(types.FixedClock{At: t0}),
		WithSportSeasons(season),
		WithAcademicCalendars(term),
	)

	created, err := s.CreateSchedule(ctx, model.ScheduleEntry{
		StudentID: "stu-1", Kind: model.KindSport, SportSeasonID: "soccer-fall", Active: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, t0, created.CreatedAt)
	require.NotNil(t, created.Season)
	assert.Equal(t, "Soccer", created.Season.Sport)

	_, err = s.CreateSchedule(ctx, model.ScheduleEntry{
		StudentID: "stu-1", Kind: model.KindAcademic, AcademicCalendarID: "fall-25", Active: true,
	})
	require.NoError(t, err)

	entries, err := s.ListSchedules(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].Season)
	require.NotNil(t, entries[1].Calendar)
	assert.Equal(t, "Fall 2025", entries[1].Calendar.TermName)

	other, err := s.ListSchedules(ctx, "stu-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = s.CreateSchedule(ctx, model.ScheduleEntry{StudentID: "stu-1", Kind: model.KindSport, SportSeasonID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetSportSeason(ctx, "soccer-fall")
	assert.NoError(t, err)
	_, err = s.GetAcademicCalendar(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ScoreCache(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertScore(ctx, model.MatchScore{
			StudentID: "stu-1", ListingID: fmt.Sprintf("lst-%d", i), Score: 50,
			ComputedAt: t0.Add(time.Duration(3-i) * time.Minute),
		}))
	}
	require.NoError(t, s.UpsertScore(ctx, model.MatchScore{StudentID: "stu-2", ListingID: "lst-0", Score: 70}))

	got, err := s.GetScore(ctx, model.PairKey{StudentID: "stu-1", ListingID: "lst-1"})
	require.NoError(t, err)
	assert.False(t, got.IsStale)

	_, err = s.GetScore(ctx, model.PairKey{StudentID: "stu-9", ListingID: "lst-1"})
	assert.ErrorIs(t, err, ErrNotFound)

	stale, err := s.StaleForStudent(ctx, "stu-1", 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	marked, err := s.MarkStudentStale(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	stale, err = s.StaleForStudent(ctx, "stu-1", 2)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "lst-2", stale[0].ListingID, "oldest computation first")
	assert.Equal(t, "lst-1", stale[1].ListingID)

	other, err := s.GetScore(ctx, model.PairKey{StudentID: "stu-2", ListingID: "lst-0"})
	require.NoError(t, err)
	assert.False(t, other.IsStale)

	students, err := s.MarkListingStale(ctx, "lst-0")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, students)

	_, err = s.StaleForStudent(ctx, "stu-1", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	require.NoError(t, s.DeleteScore(ctx, model.PairKey{StudentID: "stu-1", ListingID: "lst-2"}))
	_, err = s.GetScore(ctx, model.PairKey{StudentID: "stu-1", ListingID: "lst-2"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.DeleteScore(ctx, model.PairKey{StudentID: "stu-1", ListingID: "lst-2"}), "deleting twice is fine")

	require.NoError(t, s.UpsertScore(ctx, model.MatchScore{StudentID: "stu-2", ListingID: "lst-0", Score: 71}))
	fresh, err := s.GetScore(ctx, model.PairKey{StudentID: "stu-2", ListingID: "lst-0"})
	require.NoError(t, err)
	assert.False(t, fresh.IsStale)
	assert.Equal(t, 71.0, fresh.Score)
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				_ = s.UpsertScore(ctx, model.MatchScore{StudentID: "stu", ListingID: fmt.Sprintf("lst-%d", i), Score: float64(g)})
				_, _ = s.MarkStudentStale(ctx, "stu")
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	stale, err := s.StaleForStudent(ctx, "stu", 1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(stale), 100)
}
