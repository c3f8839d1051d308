package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Verification metrics (external CitationDatabase calls)
	VerificationTotal    *prometheus.CounterVec
	VerificationDuration *prometheus.HistogramVec
	VerificationErrors   *prometheus.CounterVec
	VerificationQuota    prometheus.Gauge

	// Worker / job metrics
	WorkerUtilization   prometheus.Gauge
	WorkerJobsProcessed *prometheus.CounterVec
	WorkerJobDuration   *prometheus.HistogramVec
	WorkerJobErrors     *prometheus.CounterVec

	// Queue metrics
	QueueDepth          *prometheus.GaugeVec
	QueueEnqueueTotal   *prometheus.CounterVec
	QueueDequeueTotal   *prometheus.CounterVec
	QueueProcessingTime *prometheus.HistogramVec

	// KeyValueStore metrics
	StoreOperations *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheSize   prometheus.Gauge

	// Citation pipeline metrics
	CitationsExtracted   *prometheus.CounterVec
	ClustersBuilt        *prometheus.CounterVec
	CitationNetworkNodes prometheus.Gauge
	CitationNetworkEdges prometheus.Gauge

	// Circuit breaker / rate limiter metrics
	CircuitBreakerState  *prometheus.GaugeVec
	RateLimiterThrottled *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestrainer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		VerificationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_verification_total",
				Help: "Total number of CitationDatabase lookups",
			},
			[]string{"status"},
		),
		VerificationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestrainer_verification_duration_seconds",
				Help:    "CitationDatabase lookup duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 30},
			},
			[]string{"status"},
		),
		VerificationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_verification_errors_total",
				Help: "Total number of CitationDatabase lookup errors",
			},
			[]string{"error_type"},
		),
		VerificationQuota: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_verification_remaining_quota",
				Help: "Remaining CitationDatabase quota as last reported",
			},
		),

		WorkerUtilization: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_worker_utilization",
				Help: "Worker pool utilization (0-1)",
			},
		),
		WorkerJobsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_worker_jobs_processed_total",
				Help: "Total number of jobs processed by workers",
			},
			[]string{"worker_id", "status"},
		),
		WorkerJobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestrainer_worker_job_duration_seconds",
				Help:    "Worker job duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"status"},
		),
		WorkerJobErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_worker_job_errors_total",
				Help: "Total number of worker job errors",
			},
			[]string{"error_kind"},
		),

		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "casestrainer_queue_depth",
				Help: "Current queue depth",
			},
			[]string{"queue_name"},
		),
		QueueEnqueueTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_queue_enqueue_total",
				Help: "Total number of jobs enqueued",
			},
			[]string{"queue_name"},
		),
		QueueDequeueTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_queue_dequeue_total",
				Help: "Total number of jobs dequeued",
			},
			[]string{"queue_name"},
		),
		QueueProcessingTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestrainer_queue_processing_time_seconds",
				Help:    "Queue item processing time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue_name"},
		),

		StoreOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_store_operations_total",
				Help: "Total number of KeyValueStore operations",
			},
			[]string{"operation", "status"},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_store_errors_total",
				Help: "Total number of KeyValueStore errors",
			},
			[]string{"operation"},
		),
		StoreLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestrainer_store_latency_seconds",
				Help:    "KeyValueStore operation latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"namespace"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"namespace"},
		),
		CacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_cache_size",
				Help: "Current cache entry count",
			},
		),

		CitationsExtracted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_citations_extracted_total",
				Help: "Total number of citation occurrences extracted",
			},
			[]string{"kind"},
		),
		ClustersBuilt: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_clusters_built_total",
				Help: "Total number of clusters built",
			},
			[]string{"verification_status"},
		),
		CitationNetworkNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_citation_network_nodes",
				Help: "Number of nodes in the last-built citation network",
			},
		),
		CitationNetworkEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "casestrainer_citation_network_edges",
				Help: "Number of edges in the last-built citation network",
			},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "casestrainer_circuit_breaker_state",
				Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open",
			},
			[]string{"name"},
		),
		RateLimiterThrottled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestrainer_rate_limiter_throttled_total",
				Help: "Total number of verification calls that waited on the token bucket",
			},
			[]string{"bucket"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordVerification records one CitationDatabase lookup.
func (m *Metrics) RecordVerification(status string, duration time.Duration) {
	m.VerificationTotal.WithLabelValues(status).Inc()
	m.VerificationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordVerificationError records a lookup failure by error kind.
func (m *Metrics) RecordVerificationError(errorType string) {
	m.VerificationErrors.WithLabelValues(errorType).Inc()
}

// RecordWorkerJob records a worker job outcome.
func (m *Metrics) RecordWorkerJob(workerID string, status string, duration time.Duration) {
	m.WorkerJobsProcessed.WithLabelValues(workerID, status).Inc()
	m.WorkerJobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
