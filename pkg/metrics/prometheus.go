// Package metrics provides Prometheus metrics for the match engine service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the match engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring
	scoresComputed   prometheus.Counter
	scoreCacheHits   prometheus.Counter
	scoreCacheMisses prometheus.Counter
	scoringErrors    *prometheus.CounterVec
	scoringLatency   prometheus.Histogram

	// Invalidation
	invalidations *prometheus.CounterVec
	scoresStale   prometheus.Counter

	// Recomputation queue
	queueEnqueued  *prometheus.CounterVec
	queueProcessed prometheus.Counter
	queueFailed    prometheus.Counter
	queueDead      prometheus.Counter
	queuePending   prometheus.Gauge

	// Batch worker
	batchRuns      *prometheus.CounterVec
	batchDuration  prometheus.Histogram
	batchClaimed   prometheus.Histogram
	sweepPairs     *prometheus.CounterVec
	lastBatchUnix  prometheus.Gauge
	lastBatchItems prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchengine",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.scoresComputed = m.counter("scores_computed_total", "Total number of freshly computed match scores")
	m.scoreCacheHits = m.counter("score_cache_hits_total", "Score requests answered from a non-stale cache row")
	m.scoreCacheMisses = m.counter("score_cache_misses_total", "Score requests that required computation")
	m.scoringErrors = m.counterVec("scoring_errors_total", "Score computations that failed, by error kind", "kind")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Latency of a fresh score computation in milliseconds", m.histogramBuckets)

	m.invalidations = m.counterVec("invalidations_total", "Invalidation requests by side of the pair", "side", "reason")
	m.scoresStale = m.counter("scores_marked_stale_total", "Cached score rows flagged stale")

	m.queueEnqueued = m.counterVec("queue_enqueued_total", "Recompute items enqueued by target kind", "target")
	m.queueProcessed = m.counter("queue_processed_total", "Recompute items marked processed")
	m.queueFailed = m.counter("queue_failed_total", "Recompute item attempts that failed")
	m.queueDead = m.counter("queue_dead_total", "Recompute items moved to the dead state")
	m.queuePending = m.gauge("queue_pending", "Recompute items still pending after the last run")

	m.batchRuns = m.counterVec("batch_runs_total", "Batch worker runs by outcome", "outcome")
	m.batchDuration = m.histogram("batch_duration_milliseconds", "Batch worker run duration in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000})
	m.batchClaimed = m.histogram("batch_claimed_items", "Items claimed per batch run",
		[]float64{0, 1, 5, 10, 20, 30, 40, 50})
	m.sweepPairs = m.counterVec("sweep_pairs_total", "Pairs visited by sweep items by outcome", "outcome")
	m.lastBatchUnix = m.gauge("batch_last_run_unix", "Unix timestamp of the last completed batch run")
	m.lastBatchItems = m.gauge("batch_last_processed", "Items processed by the last batch run")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordScoreComputed records a fresh computation and its latency.
func RecordScoreComputed(latencyMs float64) {
	globalManager.scoresComputed.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoreCacheHit increments the cache hit counter.
func RecordScoreCacheHit() {
	globalManager.scoreCacheHits.Inc()
}

// RecordScoreCacheMiss increments the cache miss counter.
func RecordScoreCacheMiss() {
	globalManager.scoreCacheMisses.Inc()
}

// RecordScoringError increments the scoring error counter for kind.
func RecordScoringError(kind string) {
	globalManager.scoringErrors.WithLabelValues(kind).Inc()
}

// RecordInvalidation records an invalidation and the number of rows it flagged.
func RecordInvalidation(side, reason string, marked int) {
	globalManager.invalidations.WithLabelValues(side, reason).Inc()
	globalManager.scoresStale.Add(float64(marked))
}

// RecordQueueEnqueue increments the enqueue counter for target ("sweep" or "specific").
func RecordQueueEnqueue(target string) {
	globalManager.queueEnqueued.WithLabelValues(target).Inc()
}

// RecordQueueProcessed increments the processed counter.
func RecordQueueProcessed() {
	globalManager.queueProcessed.Inc()
}

// RecordQueueFailed increments the failed-attempt counter.
func RecordQueueFailed() {
	globalManager.queueFailed.Inc()
}

// RecordQueueDead increments the dead counter.
func RecordQueueDead() {
	globalManager.queueDead.Inc()
}

// UpdateQueuePending sets the pending gauge.
func UpdateQueuePending(n int) {
	globalManager.queuePending.Set(float64(n))
}

// RecordBatchRun records the outcome of a batch run.
func RecordBatchRun(outcome string, claimed, processed int, durationMs float64, finishedUnix int64) {
	globalManager.batchRuns.WithLabelValues(outcome).Inc()
	globalManager.batchDuration.Observe(durationMs)
	globalManager.batchClaimed.Observe(float64(claimed))
	globalManager.lastBatchUnix.Set(float64(finishedUnix))
	globalManager.lastBatchItems.Set(float64(processed))
}

// RecordSweepPair records one pair visited by a sweep ("recomputed", "failed", "duplicate").
func RecordSweepPair(outcome string) {
	globalManager.sweepPairs.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
