package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/student/dashboard", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/student/courses/:id", http.StatusUnprocessableEntity, 30*time.Millisecond)
	m.ObserveUpstream("GET /studDash/", "ok", 20*time.Millisecond)
	m.ObserveUpstream("POST /studDash/", "network_error", 40*time.Millisecond)
	m.RecordLedgerMutation("add", "reverted")
	m.RecordLedgerMutation("add", "committed")
	m.RecordImportRows("courses", 4, 1)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(true)
	m.ObserveJob("imports", "courses", "failed", time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.01)
	assert.Equal(t, uint64(2), snap.UpstreamCalls)
	assert.Equal(t, uint64(1), snap.UpstreamFailures)
	assert.InDelta(t, 30.0, snap.AverageUpstreamDurationMs, 0.01)
	assert.Equal(t, uint64(1), snap.LedgerReverts)
	assert.Equal(t, uint64(4), snap.ImportRowsSucceeded)
	assert.Equal(t, uint64(1), snap.ImportRowsFailed)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snap.JobsFailed)
}

func TestMetricsExposesJobSeries(t *testing.T) {
	m := NewMetricsService()
	pending := 3
	require.NoError(t, m.RegisterQueueDepth("imports", func() int { return pending }))
	assert.Error(t, m.RegisterQueueDepth("imports", func() int { return 0 }))
	m.ObserveJob("imports", "students", "succeeded", 5*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `job_queue_pending{queue="imports"} 3`)
	assert.Contains(t, body, `job_runs_total{outcome="succeeded",queue="imports",type="students"} 1`)
	assert.Contains(t, body, "job_duration_seconds")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ObserveJob("q", "t", "failed", time.Millisecond)
	assert.NoError(t, m.RegisterQueueDepth("q", func() int { return 0 }))
	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
