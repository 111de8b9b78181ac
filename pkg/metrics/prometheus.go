// Package metrics provides Prometheus metrics for the standlive service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the standlive service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core pipeline metrics
	scoringPasses      prometheus.Counter
	scoringPassLatency prometheus.Histogram
	aggregations       prometheus.Counter
	aggregationLatency prometheus.Histogram

	// Upstream standings source
	upstreamFetches      prometheus.Counter
	upstreamFetchLatency prometheus.Histogram
	upstreamErrors       prometheus.Counter
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter

	// Live subscription path
	polls           prometheus.Counter
	pollErrors      prometheus.Counter
	broadcasts      prometheus.Counter
	listenersActive prometheus.Gauge
	pollersActive   prometheus.Gauge
	trackedHandles  prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "standlive",
		subsystem:        "standings",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoringPasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_passes_total",
		Help:      "Total number of scoring engine passes",
	})
	m.scoringPassLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_pass_duration_milliseconds",
		Help:      "Histogram of scoring pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.aggregations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregations_total",
		Help:      "Total number of multi-contest aggregation requests",
	})
	m.aggregationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_duration_milliseconds",
		Help:      "Histogram of aggregation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.upstreamFetches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_fetches_total",
		Help:      "Total number of upstream standings fetches",
	})
	m.upstreamFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_fetch_duration_milliseconds",
		Help:      "Histogram of upstream fetch duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.upstreamErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_errors_total",
		Help:      "Total number of failed upstream standings calls",
	})
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_cache_hits_total",
		Help:      "Total number of standings cache hits",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_cache_misses_total",
		Help:      "Total number of standings cache misses",
	})

	m.polls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_total",
		Help:      "Total number of live poll cycles",
	})
	m.pollErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_errors_total",
		Help:      "Total number of live poll cycles that failed and broadcast an error",
	})
	m.broadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_total",
		Help:      "Total number of messages broadcast to live listeners",
	})
	m.listenersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "listeners_active",
		Help:      "Current number of connected live listeners",
	})
	m.pollersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pollers_active",
		Help:      "Current number of contests with an active poll timer",
	})
	m.trackedHandles = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_handles",
		Help:      "Number of handles in the live score history",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// TimeScoringPass records one scoring pass; the returned func observes the
// pass duration when called: defer metrics.TimeScoringPass()().
func TimeScoringPass() func() {
	globalManager.scoringPasses.Inc()
	start := time.Now()
	return func() {
		globalManager.scoringPassLatency.Observe(float64(time.Since(start).Milliseconds()))
	}
}

// TimeAggregation records one aggregation request and times it.
func TimeAggregation() func() {
	globalManager.aggregations.Inc()
	start := time.Now()
	return func() {
		globalManager.aggregationLatency.Observe(float64(time.Since(start).Milliseconds()))
	}
}

// RecordUpstreamFetch records one completed upstream call and its duration.
func RecordUpstreamFetch(d time.Duration) {
	globalManager.upstreamFetches.Inc()
	globalManager.upstreamFetchLatency.Observe(float64(d.Milliseconds()))
}

// RecordUpstreamError records one failed upstream call.
func RecordUpstreamError() {
	globalManager.upstreamErrors.Inc()
}

// RecordCacheHit records a standings cache hit.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss records a standings cache miss.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordPoll records one live poll cycle.
func RecordPoll() {
	globalManager.polls.Inc()
}

// RecordPollError records one failed live poll cycle.
func RecordPollError() {
	globalManager.pollErrors.Inc()
}

// RecordBroadcast records n messages delivered to listeners.
func RecordBroadcast(n int) {
	if n > 0 {
		globalManager.broadcasts.Add(float64(n))
	}
}

// UpdateListenersActive sets the connected-listener gauge.
func UpdateListenersActive(n int) {
	globalManager.listenersActive.Set(float64(n))
}

// UpdatePollersActive sets the active-poll-timer gauge.
func UpdatePollersActive(n int) {
	globalManager.pollersActive.Set(float64(n))
}

// UpdateTrackedHandles sets the live-history handle gauge.
func UpdateTrackedHandles(n int) {
	globalManager.trackedHandles.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry backing the global
// manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
