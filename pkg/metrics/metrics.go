// Package metrics tracks indexer health and throughput: Prometheus
// counters for scraping, plus capped in-memory duration samples for
// the periodic performance report.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxSamples bounds each duration sample ring buffer; the average is
// computed over at most this many most-recent observations so a
// long-running process doesn't grow this window without bound. This
// mirrors the 1000-sample cap the original event-listener's metrics
// collector applies to its duration vectors.
const maxSamples = 1000

// sampleWindow is a fixed-capacity ring buffer of recent durations.
type sampleWindow struct {
	mu      sync.Mutex
	samples []time.Duration
}

func newSampleWindow() *sampleWindow {
	return &sampleWindow{samples: make([]time.Duration, 0, maxSamples)}
}

func (w *sampleWindow) record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) >= maxSamples {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, d)
}

func (w *sampleWindow) average() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range w.samples {
		total += s
	}
	return total / time.Duration(len(w.samples))
}

// Collector is the indexer-wide metrics sink: one Collector is shared
// across the supervisor's components. Every counter is tracked twice —
// once as an atomic.Uint64 for cheap in-process reporting, once
// through a Prometheus metric for the scrape endpoint — following the
// original event-listener's own AtomicU64-backed counters.
type Collector struct {
	registry *prometheus.Registry
	start    time.Time

	eventsProcessed      atomic.Uint64
	eventsFailed         atomic.Uint64
	websocketConnections atomic.Uint64
	websocketReconnects  atomic.Uint64
	batchWrites          atomic.Uint64
	checkpointSaves      atomic.Uint64

	eventsProcessedVec  *prometheus.CounterVec
	eventsFailedMetric  prometheus.Counter
	wsConnectionsMetric prometheus.Counter
	wsReconnectsMetric  prometheus.Counter
	batchWritesMetric   prometheus.Counter
	checkpointsMetric   prometheus.Counter

	processingHistogram prometheus.Histogram
	wsLatencyHistogram  prometheus.Histogram
	batchWriteHistogram prometheus.Histogram

	processingDurations *sampleWindow
	wsLatencies         *sampleWindow
	batchWriteDurations *sampleWindow
}

// New builds a Collector registered against a fresh Prometheus
// registry; callers expose it over HTTP via Handler().
func New() *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		registry: reg,
		start:    time.Now(),

		eventsProcessedVec: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_events_processed_total",
			Help: "Events successfully parsed and persisted, by program id.",
		}, []string{"program_id"}),
		eventsFailedMetric: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indexer_events_failed_total",
			Help: "Events that failed to parse or persist.",
		}),
		wsConnectionsMetric: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indexer_websocket_connections_total",
			Help: "WebSocket connections established.",
		}),
		wsReconnectsMetric: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indexer_websocket_reconnections_total",
			Help: "WebSocket reconnect attempts after a dropped connection.",
		}),
		batchWritesMetric: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indexer_batch_writes_total",
			Help: "Batch writes flushed to the document store.",
		}),
		checkpointsMetric: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indexer_checkpoint_saves_total",
			Help: "Checkpoint snapshots persisted.",
		}),
		processingHistogram: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "indexer_event_processing_duration_seconds",
			Help:    "Time to parse and persist one event.",
			Buckets: prometheus.DefBuckets,
		}),
		wsLatencyHistogram: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "indexer_websocket_latency_seconds",
			Help:    "Round-trip time observed on the WebSocket log stream.",
			Buckets: prometheus.DefBuckets,
		}),
		batchWriteHistogram: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "indexer_batch_write_duration_seconds",
			Help:    "Time to flush one batch to the document store.",
			Buckets: prometheus.DefBuckets,
		}),
		processingDurations: newSampleWindow(),
		wsLatencies:         newSampleWindow(),
		batchWriteDurations: newSampleWindow(),
	}
}

// Handler serves the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordEventProcessed(programID string) {
	c.eventsProcessed.Add(1)
	c.eventsProcessedVec.WithLabelValues(programID).Inc()
}

func (c *Collector) RecordEventFailed() {
	c.eventsFailed.Add(1)
	c.eventsFailedMetric.Inc()
}

func (c *Collector) RecordWebSocketConnection() {
	c.websocketConnections.Add(1)
	c.wsConnectionsMetric.Inc()
}

func (c *Collector) RecordWebSocketReconnection() {
	c.websocketReconnects.Add(1)
	c.wsReconnectsMetric.Inc()
}

func (c *Collector) RecordCheckpointSave() {
	c.checkpointSaves.Add(1)
	c.checkpointsMetric.Inc()
}

func (c *Collector) RecordProcessingDuration(d time.Duration) {
	c.processingHistogram.Observe(d.Seconds())
	c.processingDurations.record(d)
}

func (c *Collector) RecordWebSocketLatency(d time.Duration) {
	c.wsLatencyHistogram.Observe(d.Seconds())
	c.wsLatencies.record(d)
}

func (c *Collector) RecordBatchWrite(d time.Duration) {
	c.batchWrites.Add(1)
	c.batchWritesMetric.Inc()
	c.batchWriteHistogram.Observe(d.Seconds())
	c.batchWriteDurations.record(d)
}

// WebSocketHealth summarizes connection churn and latency.
type WebSocketHealth struct {
	ConnectionsCount   uint64
	ReconnectionsCount uint64
	AvgLatencyMs       float64
}

// DatabaseHealth summarizes batch-write throughput.
type DatabaseHealth struct {
	BatchWritesCount   uint64
	AvgWriteDurationMs float64
	CheckpointSaves    uint64
}

// PerformanceReport is the periodic snapshot the supervisor logs,
// grounded on the shape the original event-listener's metrics
// collector reports on its own interval tick.
type PerformanceReport struct {
	UptimeSeconds    uint64
	EventsPerSecond  float64
	BatchesPerMinute float64
	AvgProcessingMs  float64
	ErrorRate        float64
	WebSocket        WebSocketHealth
	Database         DatabaseHealth
}

// Report computes a point-in-time PerformanceReport from the counters
// and sample windows accumulated so far.
func (c *Collector) Report() PerformanceReport {
	uptimeSeconds := time.Since(c.start).Seconds()
	if uptimeSeconds <= 0 {
		uptimeSeconds = 1
	}

	processed := float64(c.eventsProcessed.Load())
	failed := float64(c.eventsFailed.Load())
	total := processed + failed
	errorRate := 0.0
	if total > 0 {
		errorRate = failed / total
	}

	batches := float64(c.batchWrites.Load())

	return PerformanceReport{
		UptimeSeconds:    uint64(uptimeSeconds),
		EventsPerSecond:  processed / uptimeSeconds,
		BatchesPerMinute: batches / (uptimeSeconds / 60),
		AvgProcessingMs:  millis(c.processingDurations.average()),
		ErrorRate:        errorRate,
		WebSocket: WebSocketHealth{
			ConnectionsCount:   c.websocketConnections.Load(),
			ReconnectionsCount: c.websocketReconnects.Load(),
			AvgLatencyMs:       millis(c.wsLatencies.average()),
		},
		Database: DatabaseHealth{
			BatchWritesCount:   c.batchWrites.Load(),
			AvgWriteDurationMs: millis(c.batchWriteDurations.average()),
			CheckpointSaves:    c.checkpointSaves.Load(),
		},
	}
}

func millis(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
