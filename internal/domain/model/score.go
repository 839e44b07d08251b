package model

import "time"

// Signal is one weighted input to a match score.
type Signal struct {
	Value  float64 `json:"value"`  // raw signal in [0,1]
	Weight float64 `json:"weight"` // normalized weight, all weights sum to 1
	Points float64 `json:"points"` // contribution to the 0-100 score
}

// Breakdown keeps the per-signal contributions of a score.
type Breakdown struct {
	Skills       Signal `json:"skills"`
	Hours        Signal `json:"hours"`
	Temporal     Signal `json:"temporal"`
	Category     Signal `json:"category"`
	Compensation Signal `json:"compensation"`
	Reputation   Signal `json:"reputation"`
}

// MatchScore is the cached score for a (student, listing) pair.
type MatchScore struct {
	StudentID  string
	ListingID  string
	TenantID   string
	Score      float64
	Breakdown  Breakdown
	ComputedAt time.Time
	IsStale    bool
}

// PairKey identifies a (student, listing) pair.
type PairKey struct {
	StudentID string
	ListingID string
}

// Key returns the score's pair key.
func (s MatchScore) Key() PairKey {
	return PairKey{StudentID: s.StudentID, ListingID: s.ListingID}
}

// String renders the key as student/listing.
func (k PairKey) String() string {
	return k.StudentID + "/" + k.ListingID
}
