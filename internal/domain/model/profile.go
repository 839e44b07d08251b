package model

import "time"

// Student holds the attributes the scorer reads about a student.
type Student struct {
	ID                  string
	TenantID            string
	Skills              []string
	PreferredCategories []string
	MinHourlyRate       float64 // 0 means no minimum
	MaxDurationWeeks    int     // 0 means no maximum
	Reputation          float64 // 0-5
	ReviewCount         int
}

// Compensation describes how a listing pays.
type Compensation string

// Compensation kinds.
const (
	CompensationPaid    Compensation = "paid"
	CompensationStipend Compensation = "stipend"
	CompensationUnpaid  Compensation = "unpaid"
)

// Listing holds the attributes the scorer reads about a project listing.
type Listing struct {
	ID                 string
	TenantID           string
	PartnerID          string
	Title              string
	Category           string
	RequiredSkills     []string
	HoursPerWeek       float64
	DurationWeeks      int
	StartDate          time.Time
	EndDate            time.Time
	Compensation       Compensation
	HourlyRate         float64
	PartnerReputation  float64 // 0-5
	PartnerReviewCount int
}
