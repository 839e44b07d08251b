// Package scoring computes a bounded 0-100 match score for a student and a
// listing from six weighted signals.
package scoring

import (
	"math"
	"strings"

	"github.com/okian/matchengine/internal/domain/availability"
	"github.com/okian/matchengine/internal/domain/model"
)

// Scoring constants.
const (
	maxScore      = 100
	maxReputation = 5.0
	neutral       = 0.5

	travelShare    = 0.6
	intensityShare = 0.4
)

// Input gathers everything a score depends on.
type Input struct {
	Student      model.Student
	Listing      model.Listing
	Availability availability.Summary
}

// Result is a score with its explanation.
type Result struct {
	Score     float64
	Breakdown model.Breakdown
}

// Scorer computes a score from an input.
type Scorer interface {
	Score(in Input) Result
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets signal weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.total() > 0 {
			e.weights = w
		}
	}
}

// WithWeightsFromConfig sets signal weights from a name -> weight map.
func WithWeightsFromConfig(m map[string]float64) Option {
	return func(e *Engine) {
		e.weights = WeightsFromMap(m)
	}
}

// Engine implements Scorer.
type Engine struct {
	weights Weights
}

// NewEngine creates an Engine with default weights.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the engine's weights.
func (e *Engine) Weights() Weights { return e.weights }

// Score combines the signals into a score clipped to [0,100].
func (e *Engine) Score(in Input) Result {
	w := e.weights
	total := w.total()

	var b model.Breakdown
	var sum float64
	set := func(s *model.Signal, value, weight float64) {
		value = clamp01(value)
		norm := 0.0
		if total > 0 {
			norm = weight / total
		}
		s.Value = round(value, 4)
		s.Weight = round(norm, 4)
		s.Points = round(maxScore*norm*value, 2)
		sum += maxScore * norm * value
	}

	set(&b.Skills, SkillsFit(in.Student.Skills, in.Listing.RequiredSkills), w.Skills)
	set(&b.Hours, HoursFit(in.Availability.AverageHours, in.Listing.HoursPerWeek), w.Hours)
	set(&b.Temporal, TemporalFit(in.Availability), w.Temporal)
	set(&b.Category, CategoryFit(in.Student.PreferredCategories, in.Listing.Category), w.Category)
	set(&b.Compensation, CompensationFit(in.Student, in.Listing), w.Compensation)
	set(&b.Reputation, ReputationFit(in.Student, in.Listing), w.Reputation)

	return Result{Score: round(math.Max(0, math.Min(maxScore, sum)), 2), Breakdown: b}
}

// SkillsFit is the share of required skills the student has. No requirements fit fully.
func SkillsFit(have, required []string) float64 {
	req := normalizedSet(required)
	if len(req) == 0 {
		return 1
	}
	got := normalizedSet(have)
	matched := 0
	for s := range req {
		if _, ok := got[s]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(req))
}

// HoursFit compares average weekly availability with the listing's demand.
func HoursFit(available, required float64) float64 {
	if required <= 0 {
		return 1
	}
	return clamp01(available / required)
}

// TemporalFit penalizes travel and in-season intensity over the listing window.
func TemporalFit(s availability.Summary) float64 {
	return clamp01(1 - (travelShare*s.TravelRatio + intensityShare*s.IntensityLoad))
}

// CategoryFit is 1 for a preferred category, 0 otherwise, and neutral without preferences.
func CategoryFit(preferred []string, category string) float64 {
	prefs := normalizedSet(preferred)
	c := normalize(category)
	if len(prefs) == 0 || c == "" {
		return neutral
	}
	if _, ok := prefs[c]; ok {
		return 1
	}
	return 0
}

// CompensationFit averages pay fit and duration fit.
func CompensationFit(st model.Student, l model.Listing) float64 {
	pay := 1.0
	if st.MinHourlyRate > 0 {
		rate := l.HourlyRate
		if l.Compensation == model.CompensationUnpaid {
			rate = 0
		}
		pay = clamp01(rate / st.MinHourlyRate)
	}
	duration := 1.0
	if st.MaxDurationWeeks > 0 && l.DurationWeeks > 0 {
		duration = clamp01(float64(st.MaxDurationWeeks) / float64(l.DurationWeeks))
	}
	return (pay + duration) / 2
}

// ReputationFit averages both sides' normalized ratings. Unrated sides count as neutral.
func ReputationFit(st model.Student, l model.Listing) float64 {
	return (rating(st.Reputation, st.ReviewCount) + rating(l.PartnerReputation, l.PartnerReviewCount)) / 2
}

func rating(stars float64, reviews int) float64 {
	if reviews <= 0 {
		return neutral
	}
	return clamp01(stars / maxReputation)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizedSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if n := normalize(s); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
