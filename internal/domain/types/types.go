// Package types contains calendar helpers shared across the application.
// All dates are civil dates in UTC.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

// Day is one calendar day.
const Day = 24 * time.Hour

// ParseDate parses YYYY-MM-DD as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// WeekEnd returns the Sunday of t's week.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}

// DaysOverlap counts whole days shared by the inclusive, bounded ranges
// [aStart, aEnd] and [bStart, bEnd].
func DaysOverlap(aStart, aEnd, bStart, bEnd time.Time) int {
	from := later(StartOfDay(aStart), StartOfDay(bStart))
	to := earlier(StartOfDay(aEnd), StartOfDay(bEnd))
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from)/Day) + 1
}

// Overlaps reports whether the inclusive ranges share at least one day.
// Zero bounds are open.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.IsZero() && !bStart.IsZero() && StartOfDay(aEnd).Before(StartOfDay(bStart)) {
		return false
	}
	if !bEnd.IsZero() && !aStart.IsZero() && StartOfDay(bEnd).Before(StartOfDay(aStart)) {
		return false
	}
	return true
}

// Within reports whether day lies in the inclusive range [from, to]. Zero bounds are open.
func Within(day, from, to time.Time) bool {
	day = StartOfDay(day)
	if !from.IsZero() && day.Before(StartOfDay(from)) {
		return false
	}
	if !to.IsZero() && day.After(StartOfDay(to)) {
		return false
	}
	return true
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Date is a civil date that marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate wraps t truncated to its day.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{Time: StartOfDay(t)}
}

// MarshalJSON implements json.Marshaler. The zero date marshals as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(FormatDate(d.Time))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time { return c.At }
