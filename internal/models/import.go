package models

import "time"

// ImportKind selects what a spreadsheet creates.
type ImportKind string

const (
	ImportKindCourses  ImportKind = "courses"
	ImportKindStudents ImportKind = "students"
)

// ImportFailure describes one rejected row. Row is 1-based and excludes the header.
type ImportFailure struct {
	Row        int    `json:"row"`
	Identifier string `json:"identifier,omitempty"`
	Message    string `json:"message"`
}

// ImportResult is the per-row tally of a bulk import. Imports are not atomic.
type ImportResult struct {
	Kind      ImportKind      `json:"kind"`
	Total     int             `json:"total_rows"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Failures  []ImportFailure `json:"failures"`
}

// Partial reports a mixed outcome.
func (r *ImportResult) Partial() bool {
	return r != nil && r.Succeeded > 0 && r.Failed > 0
}

// Fail records a failed row.
func (r *ImportResult) Fail(row int, identifier, message string) {
	r.Failed++
	r.Failures = append(r.Failures, ImportFailure{Row: row, Identifier: identifier, Message: message})
}

// BatchRowResult is one entry of a registrar batch import reply.
type BatchRowResult struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchImportReply is what the registrar may return from a batch import.
type BatchImportReply struct {
	Results []BatchRowResult `json:"results"`
}

// ImportJobStatus captures background import lifecycle states.
type ImportJobStatus string

const (
	ImportJobQueued     ImportJobStatus = "QUEUED"
	ImportJobProcessing ImportJobStatus = "PROCESSING"
	ImportJobFinished   ImportJobStatus = "FINISHED"
	ImportJobFailed     ImportJobStatus = "FAILED"
)

// ImportJob is an asynchronous import tracked in Redis.
type ImportJob struct {
	ID         string          `json:"id"`
	Kind       ImportKind      `json:"kind"`
	Filename   string          `json:"filename"`
	Status     ImportJobStatus `json:"status"`
	Result     *ImportResult   `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
