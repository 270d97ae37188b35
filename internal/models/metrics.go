package models

import "time"

// MetricsSnapshot summarises gateway activity since start-up.
type MetricsSnapshot struct {
	RequestsTotal             uint64    `json:"requests_total"`
	AverageRequestDurationMs  float64   `json:"average_request_duration_ms"`
	UpstreamCalls             uint64    `json:"upstream_calls"`
	UpstreamFailures          uint64    `json:"upstream_failures"`
	AverageUpstreamDurationMs float64   `json:"average_upstream_duration_ms"`
	LedgerReverts             uint64    `json:"ledger_reverts"`
	ImportRowsSucceeded       uint64    `json:"import_rows_succeeded"`
	ImportRowsFailed          uint64    `json:"import_rows_failed"`
	CacheHitRatio             float64   `json:"cache_hit_ratio"`
	JobsFailed                uint64    `json:"jobs_failed"`
	Goroutines                int       `json:"goroutines"`
	GeneratedAt               time.Time `json:"generated_at"`
}
