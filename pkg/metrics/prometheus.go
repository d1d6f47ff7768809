// Package metrics provides Prometheus metrics for the kinescreen screening service.
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

// Manager manages all Prometheus metrics for the kinescreen service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Engine Metrics - frame stream and evaluator activity
	framesProcessed     prometheus.Counter
	framesLowVisibility prometheus.Counter
	taskUpdates         *prometheus.CounterVec
	taskCompletions     *prometheus.CounterVec
	evaluationLatency   prometheus.Histogram
	debouncedEvents     prometheus.Counter

	// Session Metrics - assessment lifecycle
	sessionsCreated prometheus.Counter
	resultsRecorded *prometheus.CounterVec
	summariesByRisk *prometheus.CounterVec
	sessionsTotal   prometheus.Gauge
	averageScore    prometheus.Gauge

	// Store Metrics - persistence performance
	storeWriteLatency prometheus.Histogram
	storeReadLatency  prometheus.Histogram
	storeErrors       prometheus.Counter

	// Feed Metrics - sample stream adapter
	feedDepth       prometheus.Gauge
	feedCapacity    prometheus.Gauge
	feedDrops       prometheus.Counter
	samplesEnqueued prometheus.Counter
	samplesDequeued prometheus.Counter
	runnersActive   prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "kinescreen",
		subsystem:        "screening",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Engine Metrics - frame stream and evaluator activity
	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of landmark frames run through an evaluator",
	})

	m.framesLowVisibility = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_low_visibility_total",
		Help:      "Total number of frames rejected for missing or low-confidence landmarks",
	})

	m.taskUpdates = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "task_updates_total",
			Help:      "Total number of task updates emitted, by task",
		},
		[]string{"task"},
	)

	m.taskCompletions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "task_completions_total",
			Help:      "Total number of completed task attempts, by task and score",
		},
		[]string{"task", "score"},
	)

	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_latency_milliseconds",
		Help:      "Histogram of per-frame evaluation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.debouncedEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "debounced_events_total",
		Help:      "Total number of discrete events suppressed inside a debounce window",
	})

	// Session Metrics - assessment lifecycle
	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_created_total",
		Help:      "Total number of assessment sessions created",
	})

	m.resultsRecorded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "results_recorded_total",
			Help:      "Total number of task results recorded, by task",
		},
		[]string{"task"},
	)

	m.summariesByRisk = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "summaries_total",
			Help:      "Total number of assessment summaries generated, by risk category",
		},
		[]string{"risk"},
	)

	m.sessionsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_total",
		Help:      "Total number of sessions currently in the store",
	})

	m.averageScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "average_overall_score",
		Help:      "Average overall score across completed sessions",
	})

	// Store Metrics - persistence performance
	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Session store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeReadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_read_latency_milliseconds",
		Help:      "Session store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of session store errors",
	})

	// Feed Metrics - sample stream adapter
	m.feedDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_depth",
		Help:      "Current number of samples buffered in the feed",
	})

	m.feedCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_capacity",
		Help:      "Maximum feed capacity",
	})

	m.feedDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_drops_total",
		Help:      "Total number of samples rejected because the feed was full",
	})

	m.samplesEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_enqueued_total",
		Help:      "Total number of samples accepted into the feed",
	})

	m.samplesDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_dequeued_total",
		Help:      "Total number of samples consumed from the feed",
	})

	m.runnersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runners_active",
		Help:      "Number of active stream runners",
	})

	// HTTP Performance Metrics - user experience indicators
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

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Engine Metrics Functions.

// RecordFrameProcessed increments the processed frames counter.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordFrameLowVisibility increments the low-visibility frames counter.
func RecordFrameLowVisibility() {
	globalManager.framesLowVisibility.Inc()
}

// RecordTaskUpdate increments the update counter for a task.
func RecordTaskUpdate(task string) {
	globalManager.taskUpdates.WithLabelValues(task).Inc()
}

// RecordTaskCompletion increments the completion counter for a task and score.
func RecordTaskCompletion(task, score string) {
	globalManager.taskCompletions.WithLabelValues(task, score).Inc()
}

// RecordEvaluationLatency records per-frame evaluation latency in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordDebouncedEvent increments the suppressed-event counter.
func RecordDebouncedEvent() {
	globalManager.debouncedEvents.Inc()
}

// Session Metrics Functions.

// RecordSessionCreated increments the created sessions counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordResultRecorded increments the recorded results counter for a task.
func RecordResultRecorded(task string) {
	globalManager.resultsRecorded.WithLabelValues(task).Inc()
}

// RecordSummary increments the summaries counter for a risk category.
func RecordSummary(risk string) {
	globalManager.summariesByRisk.WithLabelValues(risk).Inc()
}

// UpdateSessionsTotal sets the total sessions gauge.
func UpdateSessionsTotal(count int) {
	globalManager.sessionsTotal.Set(float64(count))
}

// UpdateAverageScore sets the average overall score gauge.
func UpdateAverageScore(score float64) {
	globalManager.averageScore.Set(score)
}

// Store Metrics Functions.

// RecordStoreWriteLatency records a store write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreReadLatency records a store read latency in milliseconds.
func RecordStoreReadLatency(latencyMs float64) {
	globalManager.storeReadLatency.Observe(latencyMs)
}

// RecordStoreError increments the store errors counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// Feed Metrics Functions.

// UpdateFeedDepth sets the current feed depth.
func UpdateFeedDepth(depth int) {
	globalManager.feedDepth.Set(float64(depth))
}

// UpdateFeedCapacity sets the maximum feed capacity.
func UpdateFeedCapacity(capacity int) {
	globalManager.feedCapacity.Set(float64(capacity))
}

// RecordFeedDrop increments the dropped samples counter.
func RecordFeedDrop() {
	globalManager.feedDrops.Inc()
}

// RecordSampleEnqueued increments the accepted samples counter.
func RecordSampleEnqueued() {
	globalManager.samplesEnqueued.Inc()
}

// RecordSampleDequeued increments the consumed samples counter.
func RecordSampleDequeued() {
	globalManager.samplesDequeued.Inc()
}

// UpdateRunnersActive sets the active runner count.
func UpdateRunnersActive(count int) {
	globalManager.runnersActive.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System Performance Metrics Functions.

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
