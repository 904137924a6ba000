// Package metrics provides Prometheus metrics for the parkprice service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tickBuckets covers sub-millisecond ticks up to multi-second stalls.
var tickBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000} //nolint:gochecknoglobals // constant bucket layout

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine
	ticks                  prometheus.Counter
	ticksRejected          *prometheus.CounterVec
	tickDuration           prometheus.Histogram
	readingsAccepted       prometheus.Counter
	readingsRejected       *prometheus.CounterVec
	priceUpdates           prometheus.Counter
	competitiveAdjustments *prometheus.CounterVec
	lotsTracked            prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Tick runner
	workerBatches prometheus.Counter
	workerErrors  *prometheus.CounterVec

	// Emission
	busDropped prometheus.Counter
	sinkWrites prometheus.Counter
	sinkErrors prometheus.Counter

	// Ingress
	batchesDuplicate    prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "parkprice",
		subsystem:        "engine",
		histogramBuckets: tickBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.ticks = m.counter("ticks_total", "Ticks completed by the engine")
	m.ticksRejected = m.counterVec("ticks_rejected_total", "Tick envelopes rejected before ingest", "reason")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Wall time of a full two-phase tick")
	m.readingsAccepted = m.counter("readings_accepted_total", "Readings applied to lot state")
	m.readingsRejected = m.counterVec("readings_rejected_total", "Readings rejected during ingest", "reason")
	m.priceUpdates = m.counter("price_updates_total", "Price updates emitted")
	m.competitiveAdjustments = m.counterVec("competitive_adjustments_total", "Competitive nudges applied to demand prices", "direction")
	m.lotsTracked = m.gauge("lots_tracked", "Lots with committed state")

	m.queueSize = m.gauge("queue_size", "Batches waiting in the ingest queue")
	m.queueCapacity = m.gauge("queue_capacity", "Ingest queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Batches enqueued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Batches refused by the queue", "reason")

	m.workerBatches = m.counter("worker_batches_total", "Batches handed to the engine by the tick runner")
	m.workerErrors = m.counterVec("worker_errors_total", "Batches the engine refused", "reason")

	m.busDropped = m.counter("bus_dropped_total", "Price updates dropped for slow subscribers")
	m.sinkWrites = m.counter("sink_writes_total", "Price updates written to the external sink")
	m.sinkErrors = m.counter("sink_errors_total", "Failed external sink writes")

	m.batchesDuplicate = m.counter("batches_duplicate_total", "Batches ignored as duplicates")
	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordTick records a completed tick and its duration.
func RecordTick(durationMs float64) {
	globalManager.ticks.Inc()
	globalManager.tickDuration.Observe(durationMs)
}

// RecordTickRejected records an envelope rejected up front.
func RecordTickRejected(reason string) {
	globalManager.ticksRejected.WithLabelValues(reason).Inc()
}

// RecordReadingsAccepted adds n accepted readings.
func RecordReadingsAccepted(n int) {
	globalManager.readingsAccepted.Add(float64(n))
}

// RecordReadingRejected records one rejected reading.
func RecordReadingRejected(reason string) {
	globalManager.readingsRejected.WithLabelValues(reason).Inc()
}

// RecordPriceUpdates adds n emitted price updates.
func RecordPriceUpdates(n int) {
	globalManager.priceUpdates.Add(float64(n))
}

// RecordCompetitiveAdjustment records a nudge direction ("up" or "down").
func RecordCompetitiveAdjustment(direction string) {
	globalManager.competitiveAdjustments.WithLabelValues(direction).Inc()
}

// UpdateLotsTracked sets the number of lots with state.
func UpdateLotsTracked(n int) {
	globalManager.lotsTracked.Set(float64(n))
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue records a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError records a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordWorkerBatch records a batch taken off the queue.
func RecordWorkerBatch() {
	globalManager.workerBatches.Inc()
}

// RecordWorkerError records a batch whose tick failed.
func RecordWorkerError(reason string) {
	globalManager.workerErrors.WithLabelValues(reason).Inc()
}

// RecordBusDrop records one dropped bus delivery.
func RecordBusDrop() {
	globalManager.busDropped.Inc()
}

// RecordSinkWrite records a successful sink write.
func RecordSinkWrite() {
	globalManager.sinkWrites.Inc()
}

// RecordSinkError records a failed sink write.
func RecordSinkError() {
	globalManager.sinkErrors.Inc()
}

// RecordBatchDuplicate records a duplicate batch submission.
func RecordBatchDuplicate() {
	globalManager.batchesDuplicate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
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
