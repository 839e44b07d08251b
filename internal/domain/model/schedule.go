// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleKind classifies a schedule entry.
type ScheduleKind string

// Schedule kinds.
const (
	KindSport    ScheduleKind = "sport"
	KindAcademic ScheduleKind = "academic"
	KindCustom   ScheduleKind = "custom"
	KindWork     ScheduleKind = "work"
)

// Valid reports whether k is a known kind.
func (k ScheduleKind) Valid() bool {
	switch k {
	case KindSport, KindAcademic, KindCustom, KindWork:
		return true
	}
	return false
}

// SeasonType says whether a sport season reduces availability.
type SeasonType string

// Season types.
const (
	InSeason  SeasonType = "in-season"
	OffSeason SeasonType = "off-season"
)

// ScheduleEntry is one source of schedule load owned by a student.
type ScheduleEntry struct {
	ID                 string
	StudentID          string
	TenantID           string
	Kind               ScheduleKind
	SportSeasonID      string
	AcademicCalendarID string

	// Joined reference data, populated on read.
	Season   *SportSeason
	Calendar *AcademicCalendar

	Blocks []TimeBlock
	Travel []TravelConflict

	// AvailableHoursPerWeek overrides the baseline when set.
	AvailableHoursPerWeek *float64

	EffectiveFrom time.Time
	EffectiveTo   time.Time // zero means open ended
	Active        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeBlock is a recurring weekly commitment.
type TimeBlock struct {
	Day   time.Weekday
	Start string // HH:MM
	End   string // HH:MM
	Label string
}

// Hours returns the block duration. Malformed or inverted blocks yield 0.
func (b TimeBlock) Hours() float64 {
	start, err := ParseClock(b.Start)
	if err != nil {
		return 0
	}
	end, err := ParseClock(b.End)
	if err != nil || end <= start {
		return 0
	}
	return float64(end-start) / 60
}

// TravelConflict marks days the student is away.
type TravelConflict struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// SportSeason is reference data for a sport's yearly cycle.
type SportSeason struct {
	ID                      string
	Sport                   string
	SeasonType              SeasonType
	StartMonth              time.Month
	EndMonth                time.Month
	PracticeHoursPerWeek    float64
	CompetitionHoursPerWeek float64
	TravelDaysPerMonth      float64
	Intensity               int // 1-5
}

// ActiveIn reports whether the season's month range covers m. Ranges may wrap the new year.
func (s SportSeason) ActiveIn(m time.Month) bool {
	if s.StartMonth <= s.EndMonth {
		return m >= s.StartMonth && m <= s.EndMonth
	}
	return m >= s.StartMonth || m <= s.EndMonth
}

// WeeklyLoad is the hours an in-season sport takes out of a week.
func (s SportSeason) WeeklyLoad() float64 {
	if s.SeasonType != InSeason {
		return 0
	}
	return s.PracticeHoursPerWeek + s.CompetitionHoursPerWeek
}

// AcademicCalendar is reference data for one academic term.
type AcademicCalendar struct {
	ID        string
	TermName  string
	TermType  string
	StartDate time.Time
	EndDate   time.Time
}

// ParseClock parses HH:MM into minutes after midnight. "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hh < 0 || mm < 0 || mm > 59 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hh*60 + mm, nil
}
