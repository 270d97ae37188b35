package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	ledgerMutations  *prometheus.CounterVec
	importRows       *prometheus.CounterVec
	sessionLookups   *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec

	requestCount          uint64
	requestDurationTotal  uint64
	upstreamCount         uint64
	upstreamFailures      uint64
	upstreamDurationTotal uint64
	revertCount           uint64
	importSucceeded       uint64
	importFailed          uint64
	cacheHits             uint64
	cacheMisses           uint64
	jobsFailed            uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registrar_request_duration_seconds",
		Help:    "Duration of registrar API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_requests_total",
		Help: "Registrar API calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	ledgerMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Enrollment ledger mutations by kind and result",
	}, []string{"kind", "result"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Bulk import rows by kind and outcome",
	}, []string{"kind", "outcome"})

	sessionLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_lookups_total",
		Help: "Session store lookups by result",
	}, []string{"result"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Reference data cache lookups by result",
	}, []string{"result"})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job handler runs by queue, type and outcome",
	}, []string{"queue", "type", "outcome"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Background job handler duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue", "type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, upstreamTotal, ledgerMutations, importRows, sessionLookups, cacheLookups, jobRuns, jobDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		upstreamTotal:    upstreamTotal,
		ledgerMutations:  ledgerMutations,
		importRows:       importRows,
		sessionLookups:   sessionLookups,
		cacheLookups:     cacheLookups,
		jobRuns:          jobRuns,
		jobDuration:      jobDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveUpstream records a registrar call.
func (m *MetricsService) ObserveUpstream(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	m.upstreamTotal.WithLabelValues(endpoint, outcome).Inc()
	atomic.AddUint64(&m.upstreamCount, 1)
	atomic.AddUint64(&m.upstreamDurationTotal, uint64(duration.Nanoseconds()))
	if outcome != "ok" {
		atomic.AddUint64(&m.upstreamFailures, 1)
	}
}

// RecordLedgerMutation counts add/remove outcomes: accepted, rejected, committed or reverted.
func (m *MetricsService) RecordLedgerMutation(kind, result string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(kind, result).Inc()
	if result == "reverted" {
		atomic.AddUint64(&m.revertCount, 1)
	}
}

// RecordImportRows counts imported rows.
func (m *MetricsService) RecordImportRows(kind string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, "succeeded").Add(float64(succeeded))
	m.importRows.WithLabelValues(kind, "failed").Add(float64(failed))
	atomic.AddUint64(&m.importSucceeded, uint64(succeeded))
	atomic.AddUint64(&m.importFailed, uint64(failed))
}

// RecordSessionLookup counts session store hits and misses.
func (m *MetricsService) RecordSessionLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.sessionLookups.WithLabelValues(result).Inc()
}

// RecordCacheLookup counts reference data cache hits and misses.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMisses, 1)
}

// ObserveJob records one background job run; it satisfies jobs.Observer.
func (m *MetricsService) ObserveJob(queue, jobType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(queue, jobType, outcome).Inc()
	m.jobDuration.WithLabelValues(queue, jobType).Observe(duration.Seconds())
	if outcome == "failed" {
		atomic.AddUint64(&m.jobsFailed, 1)
	}
}

// RegisterQueueDepth exposes a queue's buffered job count as job_queue_pending{queue}.
func (m *MetricsService) RegisterQueueDepth(queue string, depth func() int) error {
	if m == nil {
		return nil
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "job_queue_pending",
		Help:        "Jobs buffered and waiting for a worker",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 { return float64(depth()) })
	return m.registry.Register(gauge)
}

// Snapshot returns aggregated metrics suitable for the admin summary endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	upstream := atomic.LoadUint64(&m.upstreamCount)
	upDuration := atomic.LoadUint64(&m.upstreamDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgUpstreamMs float64
	if upstream > 0 {
		avgUpstreamMs = float64(upDuration) / float64(upstream) / float64(time.Millisecond)
	}

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	var hitRatio float64
	if hits+misses > 0 {
		hitRatio = float64(hits) / float64(hits+misses)
	}

	return models.MetricsSnapshot{
		RequestsTotal:             requests,
		AverageRequestDurationMs:  avgRequestMs,
		UpstreamCalls:             upstream,
		UpstreamFailures:          atomic.LoadUint64(&m.upstreamFailures),
		AverageUpstreamDurationMs: avgUpstreamMs,
		LedgerReverts:             atomic.LoadUint64(&m.revertCount),
		ImportRowsSucceeded:       atomic.LoadUint64(&m.importSucceeded),
		ImportRowsFailed:          atomic.LoadUint64(&m.importFailed),
		CacheHitRatio:             hitRatio,
		JobsFailed:                atomic.LoadUint64(&m.jobsFailed),
		Goroutines:                runtime.NumGoroutine(),
		GeneratedAt:               time.Now().UTC(),
	}
}
