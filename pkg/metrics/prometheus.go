// Package metrics provides Prometheus metrics for the guessr game service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// DefaultLatencyBuckets are the default bounds, in milliseconds, of the
// latency histograms.
var DefaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000} //nolint:gochecknoglobals // read-only defaults

// Label values shared between recorders and callers.
const (
	OutcomeOK       = "ok"
	OutcomeCreated  = "created"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// gameplay
	guesses       *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	pointsAwarded prometheus.Histogram
	hints         *prometheus.CounterVec
	purchases     *prometheus.CounterVec
	activePlayers prometheus.Gauge
	totalPlayers  prometheus.Gauge
	authEvents    *prometheus.CounterVec

	// persistence
	profileLoads       *prometheus.CounterVec
	profileLoadLatency prometheus.Histogram
	syncJobs           prometheus.Counter
	syncErrors         prometheus.Counter
	syncLatency        prometheus.Histogram
	storeQueryLatency  *prometheus.HistogramVec

	// sync queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// workers
	workerActive prometheus.Gauge

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the package-level manager with one built from opts on a
// fresh registry. It must run at startup, before anything records.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "guessr",
		subsystem:        "game",
		histogramBuckets: DefaultLatencyBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.guesses = auto.NewCounterVec(m.counterOpts("guesses_total",
		"Accepted guesses by feedback"), []string{"feedback"})
	m.gamesFinished = auto.NewCounterVec(m.counterOpts("games_finished_total",
		"Games that left the playing state, by final status"), []string{"status"})
	m.pointsAwarded = auto.NewHistogram(m.histogramOpts("points_awarded",
		"Points awarded per won game",
		[]float64{100, 250, 500, 750, 1000, 1250, 1500, 1750, 2000, 2500}))
	m.hints = auto.NewCounterVec(m.counterOpts("hints_total",
		"Hint requests by result"), []string{"result"})
	m.purchases = auto.NewCounterVec(m.counterOpts("purchases_total",
		"Point package purchases by package and result"), []string{"package", "result"})
	m.activePlayers = auto.NewGauge(m.gaugeOpts("active_players",
		"Players with a live game session"))
	m.totalPlayers = auto.NewGauge(m.gaugeOpts("total_players",
		"Profiles known to the profile store"))
	m.authEvents = auto.NewCounterVec(m.counterOpts("auth_events_total",
		"Auth state change events delivered to the service"), []string{"type"})

	m.profileLoads = auto.NewCounterVec(m.counterOpts("profile_loads_total",
		"Profile loads by outcome"), []string{"outcome"})
	m.profileLoadLatency = auto.NewHistogram(m.histogramOpts("profile_load_latency_milliseconds",
		"Profile load latency in milliseconds", nil))
	m.syncJobs = auto.NewCounter(m.counterOpts("profile_sync_jobs_total",
		"Profile update jobs applied to the store"))
	m.syncErrors = auto.NewCounter(m.counterOpts("profile_sync_errors_total",
		"Profile update jobs that failed to persist"))
	m.syncLatency = auto.NewHistogram(m.histogramOpts("profile_sync_latency_milliseconds",
		"Time from enqueue to store write in milliseconds", nil))
	m.storeQueryLatency = auto.NewHistogramVec(m.histogramOpts("store_query_latency_milliseconds",
		"Profile store operation latency in milliseconds", nil), []string{"driver", "op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("sync_queue_size",
		"Jobs waiting in the profile sync queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("sync_queue_capacity",
		"Maximum profile sync queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("sync_queue_utilization_ratio",
		"Profile sync queue size / capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("sync_queue_enqueue_total",
		"Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("sync_queue_dequeue_total",
		"Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("sync_queue_enqueue_errors_total",
		"Jobs dropped because the queue was full or closed"))

	m.workerActive = auto.NewGauge(m.gaugeOpts("sync_worker_active_count",
		"Running profile sync workers"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and kind"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
}

// RecordGuess counts an accepted guess.
func RecordGuess(feedback string) {
	globalManager.guesses.WithLabelValues(feedback).Inc()
}

// RecordGameFinished counts a game ending in status.
func RecordGameFinished(status string) {
	globalManager.gamesFinished.WithLabelValues(status).Inc()
}

// RecordPointsAwarded observes the points of a won game.
func RecordPointsAwarded(points int) {
	globalManager.pointsAwarded.Observe(float64(points))
}

// RecordHint counts a hint request.
func RecordHint(result string) {
	globalManager.hints.WithLabelValues(result).Inc()
}

// RecordPurchase counts a purchase attempt.
func RecordPurchase(packageID, result string) {
	globalManager.purchases.WithLabelValues(packageID, result).Inc()
}

// UpdateActivePlayers sets the number of live sessions.
func UpdateActivePlayers(count int) {
	globalManager.activePlayers.Set(float64(count))
}

// UpdateTotalPlayers sets the number of stored profiles.
func UpdateTotalPlayers(count int) {
	globalManager.totalPlayers.Set(float64(count))
}

// RecordAuthEvent counts an auth state change.
func RecordAuthEvent(eventType string) {
	globalManager.authEvents.WithLabelValues(eventType).Inc()
}

// RecordProfileLoad counts a profile load and its latency.
func RecordProfileLoad(outcome string, latencyMs float64) {
	globalManager.profileLoads.WithLabelValues(outcome).Inc()
	globalManager.profileLoadLatency.Observe(latencyMs)
}

// RecordProfileSync counts an applied profile update.
func RecordProfileSync(latencyMs float64) {
	globalManager.syncJobs.Inc()
	globalManager.syncLatency.Observe(latencyMs)
}

// RecordProfileSyncError counts a failed profile update.
func RecordProfileSyncError() {
	globalManager.syncErrors.Inc()
}

// RecordStoreQueryLatency observes a store call.
func RecordStoreQueryLatency(driver, op string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// UpdateQueueSize sets the current sync queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the sync queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the sync queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running sync workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMetrics samples runtime memory and goroutine counts.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// RunSystemCollector samples runtime metrics every refresh interval until ctx ends.
func RunSystemCollector(ctx context.Context) {
	t := time.NewTicker(globalManager.refreshInterval)
	defer t.Stop()
	UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			UpdateSystemMetrics()
		}
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
