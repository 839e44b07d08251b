package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

type writer interface {
	Write(*dto.Metric) error
}

func value(c writer) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	return -1
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.scoresComputed.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_engine_scores_computed_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording scoring metrics", func() {
			before := value(globalManager.scoresComputed)
			RecordScoreComputed(12)
			RecordScoreCacheHit()
			RecordScoreCacheMiss()
			RecordScoringError("not_found")

			So(value(globalManager.scoresComputed), ShouldEqual, before+1)
			So(value(globalManager.scoringErrors.WithLabelValues("not_found")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("When recording queue and batch metrics", func() {
			So(func() {
				RecordInvalidation("student", "schedule_created", 3)
				RecordQueueEnqueue("sweep")
				RecordQueueProcessed()
				RecordQueueFailed()
				RecordQueueDead()
				UpdateQueuePending(7)
				RecordBatchRun("ok", 10, 9, 120, 1700000000)
				RecordSweepPair("recomputed")
			}, ShouldNotPanic)
			So(value(globalManager.queuePending), ShouldEqual, 7)
			So(value(globalManager.lastBatchItems), ShouldEqual, 9)
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("matches", "GET", "200")
				RecordHTTPRequestDuration("matches", "GET", "200", 3)
				RecordErrorByComponent("worker", "claim_error")
				RecordErrorByEndpoint("matches", "GET", "not_found")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(5)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry exposes them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "matchengine_")
		})
	})
}
