// Package metrics provides Prometheus metrics for the cfpulse service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Response cache
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	// Upstream API
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamShared   *prometheus.CounterVec

	// Streak engine
	streaksComputed      prometheus.Counter
	submissionsProcessed prometheus.Histogram
	recordsSkipped       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the package-level collectors on a fresh registry.
// It must run before any metric is recorded or the registry is served.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cfpulse",
		subsystem:        "core",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.cacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Response cache hits by upstream operation",
	}, []string{"operation"})

	m.cacheMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Response cache misses by upstream operation",
	}, []string{"operation"})

	m.cacheWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_writes_total",
		Help:      "Response cache writes by upstream operation and result",
	}, []string{"operation", "result"})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Entries currently held by the in-memory response cache, expired ones included",
	})

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_requests_total",
		Help:      "Upstream API calls by operation and outcome (ok, rejected, unavailable)",
	}, []string{"operation", "outcome"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_latency_milliseconds",
		Help:      "Upstream API call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.upstreamShared = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_shared_total",
		Help:      "Cache misses served by an in-flight call for the same key",
	}, []string{"operation"})

	m.streaksComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streaks_computed_total",
		Help:      "Streak computations performed",
	})

	m.submissionsProcessed = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_input_submissions",
		Help:      "Number of submissions fed into a single streak computation",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
	})

	m.recordsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak_records_skipped_total",
		Help:      "Accepted submissions skipped because of an unusable timestamp",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})
}

// RecordCacheHit counts a cache hit for op.
func RecordCacheHit(op string) {
	globalManager.cacheHits.WithLabelValues(op).Inc()
}

// RecordCacheMiss counts a cache miss for op.
func RecordCacheMiss(op string) {
	globalManager.cacheMisses.WithLabelValues(op).Inc()
}

// RecordCacheWrite counts a cache write attempt; result is "ok" or "error".
func RecordCacheWrite(op, result string) {
	globalManager.cacheWrites.WithLabelValues(op, result).Inc()
}

// UpdateCacheEntries sets the cache size gauge.
func UpdateCacheEntries(n int) {
	globalManager.cacheEntries.Set(float64(n))
}

// RecordUpstreamRequest counts an upstream call by outcome.
func RecordUpstreamRequest(op, outcome string) {
	globalManager.upstreamRequests.WithLabelValues(op, outcome).Inc()
}

// RecordUpstreamLatency observes an upstream call latency in milliseconds.
func RecordUpstreamLatency(op string, latencyMs float64) {
	globalManager.upstreamLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordUpstreamShared counts a miss that joined an in-flight call.
func RecordUpstreamShared(op string) {
	globalManager.upstreamShared.WithLabelValues(op).Inc()
}

// RecordStreakComputed counts one streak computation over n submissions.
func RecordStreakComputed(n int) {
	globalManager.streaksComputed.Inc()
	globalManager.submissionsProcessed.Observe(float64(n))
}

// RecordRecordsSkipped adds n skipped submissions.
func RecordRecordsSkipped(n int) {
	if n > 0 {
		globalManager.recordsSkipped.Add(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error response for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
