package availability

import (
	"math"

	"github.com/okian/matchengine/internal/domain/model"
)

// Summary condenses windows into the figures the scorer consumes.
type Summary struct {
	Weeks        int
	AverageHours float64
	MinHours     float64
	// TravelRatio is the share of days lost to travel, explicit or expected from seasons.
	TravelRatio float64
	// IntensityLoad is the mean in-season intensity over all weeks, normalized to [0,1].
	IntensityLoad float64
}

// Summarize aggregates windows. No windows yields the zero Summary.
func Summarize(windows []model.AvailabilityWindow) Summary {
	if len(windows) == 0 {
		return Summary{}
	}
	s := Summary{Weeks: len(windows), MinHours: math.Inf(1)}
	var hours, travelDays, intensity float64
	for _, w := range windows {
		hours += w.AvailableHours
		s.MinHours = math.Min(s.MinHours, w.AvailableHours)
		travelDays += math.Min(daysPerWeek, float64(w.TravelDays)+w.SeasonTravelDays)
		intensity += float64(w.InSeasonIntensity) / maxIntensity
	}
	n := float64(len(windows))
	s.AverageHours = hours / n
	s.TravelRatio = travelDays / (n * daysPerWeek)
	s.IntensityLoad = intensity / n
	return s
}
