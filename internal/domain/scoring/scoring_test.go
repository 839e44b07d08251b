package scoring_test

import (
	"math/rand"
	"testing"

	"github.com/okian/matchengine/internal/domain/availability"
	"github.com/okian/matchengine/internal/domain/model"
	scoring "github.com/okian/matchengine/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func baseInput() scoring.Input {
	return scoring.Input{
		Student: model.Student{
			ID:                  "stu-1",
			Skills:              []string{"Go", "SQL", "docker"},
			PreferredCategories: []string{"engineering"},
			MinHourlyRate:       20,
			MaxDurationWeeks:    12,
			Reputation:          4,
			ReviewCount:         3,
		},
		Listing: model.Listing{
			ID:                 "lst-1",
			Category:           "Engineering",
			RequiredSkills:     []string{"go", "sql", "kubernetes", "grpc"},
			HoursPerWeek:       20,
			DurationWeeks:      12,
			Compensation:       model.CompensationPaid,
			HourlyRate:         25,
			PartnerReputation:  5,
			PartnerReviewCount: 10,
		},
		Availability: availability.Summary{Weeks: 4, AverageHours: 40, MinHours: 40},
	}
}

func TestEngineScore(t *testing.T) {
	Convey("Given an engine with default weights", t, func() {
		engine := scoring.NewEngine()
		in := baseInput()

		Convey("When scoring a solid pair", func() {
			res := engine.Score(in)

			Convey("Then each signal is reported with its contribution", func() {
				So(res.Breakdown.Skills.Value, ShouldEqual, 0.5)
				So(res.Breakdown.Hours.Value, ShouldEqual, 1)
				So(res.Breakdown.Hours.Weight, ShouldEqual, 0.25)
				So(res.Breakdown.Temporal.Value, ShouldEqual, 1)
				So(res.Breakdown.Category.Value, ShouldEqual, 1)
				So(res.Breakdown.Compensation.Value, ShouldEqual, 1)
				So(res.Breakdown.Reputation.Value, ShouldEqual, 0.9)
				// 100 * (.3*.5 + .25 + .15 + .1 + .1 + .1*.9)
				So(res.Score, ShouldEqual, 84)
			})

			Convey("And scoring again is identical", func() {
				So(engine.Score(in), ShouldResemble, res)
			})
		})

		Convey("When nothing fits", func() {
			in.Student.Skills = nil
			in.Student.PreferredCategories = []string{"design"}
			in.Listing.Compensation = model.CompensationUnpaid
			in.Listing.DurationWeeks = 48
			in.Availability = availability.Summary{Weeks: 4, TravelRatio: 1, IntensityLoad: 1}
			in.Student.ReviewCount = 1
			in.Student.Reputation = 0
			in.Listing.PartnerReputation = 0
			res := engine.Score(in)

			Convey("Then the score bottoms out above zero only through duration fit", func() {
				So(res.Breakdown.Skills.Value, ShouldEqual, 0)
				So(res.Breakdown.Hours.Value, ShouldEqual, 0)
				So(res.Breakdown.Temporal.Value, ShouldEqual, 0)
				So(res.Breakdown.Category.Value, ShouldEqual, 0)
				So(res.Breakdown.Compensation.Value, ShouldEqual, 0.125)
				So(res.Score, ShouldEqual, 1.25)
			})
		})
	})
}

func TestScoreBounds(t *testing.T) {
	Convey("Given random inputs", t, func() {
		engine := scoring.NewEngine()
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			in := baseInput()
			in.Availability.AverageHours = rng.Float64()*80 - 10
			in.Availability.TravelRatio = rng.Float64() * 1.5
			in.Availability.IntensityLoad = rng.Float64()
			in.Listing.HoursPerWeek = rng.Float64() * 60
			in.Listing.HourlyRate = rng.Float64() * 50
			in.Student.Reputation = rng.Float64() * 7
			res := engine.Score(in)
			So(res.Score, ShouldBeBetweenOrEqual, 0, 100)
		}
	})
}

func TestHoursFitMonotone(t *testing.T) {
	Convey("Given increasing availability", t, func() {
		prev := -1.0
		for h := 0.0; h <= 60; h += 2.5 {
			fit := scoring.HoursFit(h, 25)
			So(fit, ShouldBeGreaterThanOrEqualTo, prev)
			prev = fit
		}
		Convey("Then a listing without hours fits fully", func() {
			So(scoring.HoursFit(0, 0), ShouldEqual, 1)
		})
	})
}

func TestSignals(t *testing.T) {
	Convey("Given individual signals", t, func() {
		Convey("Skills ignore case and blanks", func() {
			So(scoring.SkillsFit([]string{" GO "}, []string{"go", ""}), ShouldEqual, 1)
			So(scoring.SkillsFit(nil, nil), ShouldEqual, 1)
		})

		Convey("Category is neutral without preferences", func() {
			So(scoring.CategoryFit(nil, "marketing"), ShouldEqual, 0.5)
			So(scoring.CategoryFit([]string{"marketing"}, ""), ShouldEqual, 0.5)
			So(scoring.CategoryFit([]string{"Marketing"}, "marketing"), ShouldEqual, 1)
		})

		Convey("Temporal blends travel and intensity", func() {
			So(scoring.TemporalFit(availability.Summary{TravelRatio: 0.5, IntensityLoad: 0.5}), ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Unrated counterparts are neutral", func() {
			So(scoring.ReputationFit(model.Student{}, model.Listing{}), ShouldEqual, 0.5)
		})

		Convey("Compensation without student limits fits fully", func() {
			So(scoring.CompensationFit(model.Student{}, model.Listing{Compensation: model.CompensationUnpaid}), ShouldEqual, 1)
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given weight configuration", t, func() {
		Convey("Overrides land on top of defaults", func() {
			w := scoring.WeightsFromMap(map[string]float64{"Skills": 0.5, "unknown": 3, "hours": -1})
			So(w.Skills, ShouldEqual, 0.5)
			So(w.Hours, ShouldEqual, 0.25)
		})

		Convey("All-zero weights fall back to defaults", func() {
			zero := map[string]float64{}
			for k := range scoring.DefaultWeights().Map() {
				zero[k] = 0
			}
			So(scoring.WeightsFromMap(zero), ShouldResemble, scoring.DefaultWeights())
		})

		Convey("A single active signal drives the whole score", func() {
			engine := scoring.NewEngine(scoring.WithWeights(scoring.Weights{Hours: 1}))
			in := baseInput()
			in.Availability.AverageHours = 10
			res := engine.Score(in)
			So(res.Score, ShouldEqual, 50)
			So(res.Breakdown.Hours.Weight, ShouldEqual, 1)
			So(res.Breakdown.Skills.Points, ShouldEqual, 0)
		})

		Convey("Config weights are applied by the engine", func() {
			engine := scoring.NewEngine(scoring.WithWeightsFromConfig(map[string]float64{"skills": 0}))
			So(engine.Weights().Skills, ShouldEqual, 0)
		})
	})
}
