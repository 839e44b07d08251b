package model

import "time"

// Bucket is a coarse availability grade.
type Bucket string

// Buckets, best first.
const (
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
	BucketNone   Bucket = "none"
)

// TravelPrefix marks constraints caused by travel.
const TravelPrefix = "Travel: "

// AvailabilityWindow is the derived availability of one Monday-Sunday week.
type AvailabilityWindow struct {
	WeekStart      time.Time
	WeekEnd        time.Time
	AvailableHours float64
	Constraints    []string
	// TravelDays counts days of the week covered by a travel conflict.
	TravelDays int
	// SeasonTravelDays is the expected in-season travel, prorated from days per month.
	SeasonTravelDays float64
	// InSeasonIntensity is the highest in-season intensity active this week, 0 if none.
	InSeasonIntensity int
	Bucket            Bucket
}

// HasTravel reports whether any travel constraint applied.
func (w AvailabilityWindow) HasTravel() bool {
	return w.TravelDays > 0
}
