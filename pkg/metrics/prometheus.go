// Package metrics provides Prometheus metrics for the controle dashboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Latency buckets in milliseconds. The analysis backend answers in tens to
// hundreds of milliseconds and times out after seconds; an SVG render takes
// a few milliseconds.
var (
	defaultUpstreamBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000}
	defaultRenderBuckets   = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250}
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace       string
	subsystem       string
	upstreamBuckets []float64
	renderBuckets   []float64
	upstreamEnabled bool
	refreshInterval time.Duration
	customLabels    map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Analysis API client
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Dashboard controller
	submissions           *prometheus.CounterVec
	submissionsSuperseded prometheus.Counter
	validationErrors      prometheus.Counter

	// Sessions
	sessionsActive  prometheus.Gauge
	sessionsEvicted prometheus.Counter

	// Chart rendering
	chartsRendered     *prometheus.CounterVec
	chartRenderErrors  *prometheus.CounterVec
	chartRenderLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton recorder used by package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served by /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry. Call it at
// startup, before GetRegistry is served or any metric is recorded.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "controle",
		subsystem:       "dashboard",
		upstreamBuckets: defaultUpstreamBuckets,
		renderBuckets:   defaultRenderBuckets,
		upstreamEnabled: true,
		refreshInterval: defaultRefreshInterval,
		customLabels:    make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("upstream_requests_total"),
		Help:        "Analysis API calls by endpoint and outcome (success, transport, domain, validation, canceled)",
	}, []string{"endpoint", "outcome"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("upstream_latency_milliseconds"),
		Help:        "Analysis API round-trip latency in milliseconds",
		Buckets:     m.upstreamBuckets,
	}, []string{"endpoint"})

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("submissions_total"),
		Help:        "Dashboard submissions by outcome",
	}, []string{"outcome"})

	m.submissionsSuperseded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("submissions_superseded_total"),
		Help:        "Submissions whose response was discarded because a newer one was issued",
	})

	m.validationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("validation_errors_total"),
		Help:        "Submissions rejected before any request was sent",
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("sessions_active"),
		Help:        "Dashboard sessions currently held in memory",
	})

	m.sessionsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("sessions_evicted_total"),
		Help:        "Sessions evicted to stay within capacity",
	})

	m.chartsRendered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("charts_rendered_total"),
		Help:        "SVG charts rendered by kind",
	}, []string{"kind"})

	m.chartRenderErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("chart_render_errors_total"),
		Help:        "Chart render failures by kind",
	}, []string{"kind"})

	m.chartRenderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("chart_render_latency_milliseconds"),
		Help:        "SVG chart render latency in milliseconds",
		Buckets:     m.renderBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("http_requests_total"),
		Help:        "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.upstreamBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: constLabels,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordUpstreamRequest counts one analysis API call and its latency.
func RecordUpstreamRequest(endpoint, outcome string, latencyMs float64) {
	if !globalManager.upstreamEnabled {
		return
	}
	globalManager.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordSubmission counts one dashboard submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmissionSuperseded counts a response discarded for a newer submission.
func RecordSubmissionSuperseded() {
	globalManager.submissionsSuperseded.Inc()
}

// RecordValidationError counts a submission rejected before sending.
func RecordValidationError() {
	globalManager.validationErrors.Inc()
}

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(n int) {
	globalManager.sessionsActive.Set(float64(n))
}

// RecordSessionEvicted counts an evicted session.
func RecordSessionEvicted() {
	globalManager.sessionsEvicted.Inc()
}

// RecordChartRendered counts a rendered chart and its latency.
func RecordChartRendered(kind string, latencyMs float64) {
	globalManager.chartsRendered.WithLabelValues(kind).Inc()
	globalManager.chartRenderLatency.Observe(latencyMs)
}

// RecordChartRenderError counts a failed chart render.
func RecordChartRenderError(kind string) {
	globalManager.chartRenderErrors.WithLabelValues(kind).Inc()
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

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
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

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauges should be refreshed by callers.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
