// Package availability turns a student's schedule entries into weekly
// availability windows. It performs no I/O and is deterministic.
package availability

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

// Defaults and bucket thresholds, in hours per week.
const (
	DefaultBaselineHours = 40.0
	HighThreshold        = 30.0
	MediumThreshold      = 15.0

	daysPerWeek  = 7
	daysPerMonth = 30.0
	maxIntensity = 5
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithBaseline sets the weekly hours used when no entry carries an override.
func WithBaseline(hours float64) Option {
	return func(c *Calculator) {
		if hours >= 0 {
			c.baseline = hours
		}
	}
}

// Calculator computes availability windows.
type Calculator struct {
	baseline float64
}

// New creates a Calculator.
func New(opts ...Option) *Calculator {
	c := &Calculator{baseline: DefaultBaselineHours}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Baseline returns the configured baseline hours.
func (c *Calculator) Baseline() float64 { return c.baseline }

// Compute uses the default baseline.
func Compute(entries []model.ScheduleEntry, start, end time.Time) []model.AvailabilityWindow {
	return New().Compute(entries, start, end)
}

// Compute returns one window per Monday-Sunday week intersecting [start, end].
// An end before start yields no windows.
func (c *Calculator) Compute(entries []model.ScheduleEntry, start, end time.Time) []model.AvailabilityWindow {
	start, end = types.StartOfDay(start), types.StartOfDay(end)
	if end.Before(start) {
		return nil
	}

	var windows []model.AvailabilityWindow
	for ws := types.WeekStart(start); !ws.After(end); ws = ws.AddDate(0, 0, daysPerWeek) {
		windows = append(windows, c.week(entries, ws))
	}
	return windows
}

func (c *Calculator) week(entries []model.ScheduleEntry, ws time.Time) model.AvailabilityWindow {
	we := ws.AddDate(0, 0, daysPerWeek-1)
	w := model.AvailabilityWindow{WeekStart: ws, WeekEnd: we}

	hours := c.baseline
	haveOverride := false
	for i := range entries {
		e := &entries[i]
		if !participates(e, ws, we) || e.AvailableHoursPerWeek == nil {
			continue
		}
		o := math.Max(0, *e.AvailableHoursPerWeek)
		if !haveOverride || o < hours {
			hours = o
		}
		haveOverride = true
	}

	var travel []string
	var covered [daysPerWeek]bool
	for i := range entries {
		e := &entries[i]
		if !e.Active {
			continue
		}
		// Travel carries its own dates, so the entry's effective range does not gate it.
		travel = append(travel, markTravel(e.Travel, ws, we, &covered)...)

		if !participates(e, ws, we) {
			continue
		}
		switch e.Kind {
		case model.KindSport:
			hours -= sport(e.Season, ws, we, &w)
		case model.KindAcademic:
			academic(e.Calendar, ws, we, &w)
		case model.KindCustom, model.KindWork:
			hours -= blocks(e, ws, &w)
		}
	}

	for _, d := range covered {
		if d {
			w.TravelDays++
		}
	}

	hours = math.Max(0, hours)
	hours *= float64(daysPerWeek-w.TravelDays) / daysPerWeek
	w.AvailableHours = math.Round(hours*10) / 10
	w.Constraints = append(w.Constraints, travel...)
	w.Bucket = Bucket(w.AvailableHours)
	return w
}

func participates(e *model.ScheduleEntry, ws, we time.Time) bool {
	return e.Active && types.Overlaps(e.EffectiveFrom, e.EffectiveTo, ws, we)
}

func sport(s *model.SportSeason, ws, we time.Time, w *model.AvailabilityWindow) float64 {
	if s == nil || !(s.ActiveIn(ws.Month()) || s.ActiveIn(we.Month())) {
		return 0
	}
	if s.SeasonType != model.InSeason {
		w.Constraints = append(w.Constraints, fmt.Sprintf("%s off-season", s.Sport))
		return 0
	}
	intensity := clampInt(s.Intensity, 1, maxIntensity)
	w.Constraints = append(w.Constraints, fmt.Sprintf("%s in-season (intensity %d/%d)", s.Sport, intensity, maxIntensity))
	if intensity > w.InSeasonIntensity {
		w.InSeasonIntensity = intensity
	}
	w.SeasonTravelDays += math.Max(0, s.TravelDaysPerMonth) * daysPerWeek / daysPerMonth
	return s.WeeklyLoad()
}

func academic(cal *model.AcademicCalendar, ws, we time.Time, w *model.AvailabilityWindow) {
	if cal == nil || !types.Overlaps(cal.StartDate, cal.EndDate, ws, we) {
		return
	}
	label := "Academic: " + cal.TermName
	if cal.TermType != "" {
		label += " (" + cal.TermType + ")"
	}
	w.Constraints = append(w.Constraints, label)
}

func blocks(e *model.ScheduleEntry, ws time.Time, w *model.AvailabilityWindow) float64 {
	var total float64
	for _, b := range e.Blocks {
		day := ws.AddDate(0, 0, (int(b.Day)+6)%daysPerWeek)
		if !types.Within(day, e.EffectiveFrom, e.EffectiveTo) {
			continue
		}
		h := b.Hours()
		if h == 0 {
			continue
		}
		label := b.Label
		if label == "" {
			label = b.Day.String()
		}
		w.Constraints = append(w.Constraints, fmt.Sprintf("%s (%s): %.1fh", label, e.Kind, h))
		total += h
	}
	return total
}

func markTravel(conflicts []model.TravelConflict, ws, we time.Time, covered *[daysPerWeek]bool) []string {
	var out []string
	for _, t := range conflicts {
		if t.Start.IsZero() {
			continue
		}
		end := t.End
		if end.IsZero() || end.Before(t.Start) {
			end = t.Start
		}
		if types.DaysOverlap(t.Start, end, ws, we) == 0 {
			continue
		}
		for d := 0; d < daysPerWeek; d++ {
			if types.Within(ws.AddDate(0, 0, d), t.Start, end) {
				covered[d] = true
			}
		}
		reason := t.Reason
		if reason == "" {
			reason = "away"
		}
		out = append(out, model.TravelPrefix+reason)
	}
	return out
}

// Bucket grades weekly hours.
func Bucket(hours float64) model.Bucket {
	switch {
	case hours >= HighThreshold:
		return model.BucketHigh
	case hours >= MediumThreshold:
		return model.BucketMedium
	case hours > 0:
		return model.BucketLow
	default:
		return model.BucketNone
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
