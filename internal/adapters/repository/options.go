package repository

import (
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the clock used to stamp created schedule entries.
func WithClock(clock types.Clock) Option {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStudents seeds student profiles.
func WithStudents(students ...model.Student) Option {
	return func(s *MemoryStore) {
		for _, st := range students {
			s.students[st.ID] = st
		}
	}
}

// WithListings seeds listings.
func WithListings(listings ...model.Listing) Option {
	return func(s *MemoryStore) {
		for _, l := range listings {
			s.listings[l.ID] = l
		}
	}
}

// WithSportSeasons seeds sport season reference data.
func WithSportSeasons(seasons ...model.SportSeason) Option {
	return func(s *MemoryStore) {
		for _, ss := range seasons {
			s.seasons[ss.ID] = ss
		}
	}
}

// WithAcademicCalendars seeds academic calendar reference data.
func WithAcademicCalendars(calendars ...model.AcademicCalendar) Option {
	return func(s *MemoryStore) {
		for _, c := range calendars {
			s.calendars[c.ID] = c
		}
	}
}
