package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

// MemoryStore implements Store with maps guarded by a single RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	clock     types.Clock
	students  map[string]model.Student
	listings  map[string]model.Listing
	seasons   map[string]model.SportSeason
	calendars map[string]model.AcademicCalendar
	schedules map[string][]model.ScheduleEntry // by student
	scores    map[model.PairKey]model.MatchScore
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store, optionally seeded through options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		clock:     types.SystemClock{},
		students:  make(map[string]model.Student),
		listings:  make(map[string]model.Listing),
		seasons:   make(map[string]model.SportSeason),
		calendars: make(map[string]model.AcademicCalendar),
		schedules: make(map[string][]model.ScheduleEntry),
		scores:    make(map[model.PairKey]model.MatchScore),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutStudent inserts or replaces a student profile.
func (s *MemoryStore) PutStudent(st model.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// PutListing inserts or replaces a listing.
func (s *MemoryStore) PutListing(l model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

func (s *MemoryStore) GetStudent(_ context.Context, id string) (model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return model.Student{}, ErrNotFound
	}
	return st, nil
}

func (s *MemoryStore) GetListing(_ context.Context, id string) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return model.Listing{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) GetSportSeason(_ context.Context, id string) (model.SportSeason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.seasons[id]
	if !ok {
		return model.SportSeason{}, ErrNotFound
	}
	return ss, nil
}

func (s *MemoryStore) GetAcademicCalendar(_ context.Context, id string) (model.AcademicCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[id]
	if !ok {
		return model.AcademicCalendar{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListSchedules(_ context.Context, studentID string) ([]model.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.schedules[studentID]
	out := make([]model.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.join(e))
	}
	return out, nil
}

func (s *MemoryStore) CreateSchedule(_ context.Context, entry model.ScheduleEntry) (model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.SportSeasonID != "" {
		if _, ok := s.seasons[entry.SportSeasonID]; !ok {
			return model.ScheduleEntry{}, ErrNotFound
		}
	}
	if entry.AcademicCalendarID != "" {
		if _, ok := s.calendars[entry.AcademicCalendarID]; !ok {
			return model.ScheduleEntry{}, ErrNotFound
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := s.clock.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Season = nil
	entry.Calendar = nil
	entry.Blocks = slices.Clone(entry.Blocks)
	entry.Travel = slices.Clone(entry.Travel)

	s.schedules[entry.StudentID] = append(s.schedules[entry.StudentID], entry)
	return s.join(entry), nil
}

// join must be called with s.mu held.
func (s *MemoryStore) join(e model.ScheduleEntry) model.ScheduleEntry {
	if ss, ok := s.seasons[e.SportSeasonID]; ok {
		e.Season = &ss
	}
	if c, ok := s.calendars[e.AcademicCalendarID]; ok {
		e.Calendar = &c
	}
	return e
}

func (s *MemoryStore) GetScore(_ context.Context, key model.PairKey) (model.MatchScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[key]
	if !ok {
		return model.MatchScore{}, ErrNotFound
	}
	return sc, nil
}

func (s *MemoryStore) UpsertScore(_ context.Context, score model.MatchScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.Key()] = score
	return nil
}

func (s *MemoryStore) DeleteScore(_ context.Context, key model.PairKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scores, key)
	return nil
}

func (s *MemoryStore) MarkStudentStale(_ context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for k, sc := range s.scores {
		if k.StudentID != studentID {
			continue
		}
		sc.IsStale = true
		s.scores[k] = sc
		marked++
	}
	return marked, nil
}

func (s *MemoryStore) MarkListingStale(_ context.Context, listingID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var students []string
	for k, sc := range s.scores {
		if k.ListingID != listingID {
			continue
		}
		sc.IsStale = true
		s.scores[k] = sc
		students = append(students, k.StudentID)
	}
	sort.Strings(students)
	return students, nil
}

func (s *MemoryStore) StaleForStudent(_ context.Context, studentID string, limit int) ([]model.MatchScore, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []model.MatchScore
	for k, sc := range s.scores {
		if k.StudentID == studentID && sc.IsStale {
			stale = append(stale, sc)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].ComputedAt.Equal(stale[j].ComputedAt) {
			return stale[i].ComputedAt.Before(stale[j].ComputedAt)
		}
		return stale[i].ListingID < stale[j].ListingID
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}
