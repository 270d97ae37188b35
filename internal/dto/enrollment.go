package dto

import (
	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/ledger"
	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

// Sync states reported after a mutation.
const (
	SyncSynced   = "synced"
	SyncReverted = "reverted"
	SyncStale    = "stale"
)

// SubmitEnrollmentRequest is the bulk submission payload. An empty list submits the current selection.
type SubmitEnrollmentRequest struct {
	CourseIDs []int `json:"course_ids"`
}

// StudentProfile is the header block of the student dashboard.
type StudentProfile struct {
	Username   string            `json:"username"`
	FullName   string            `json:"full_name"`
	Department models.Department `json:"department"`
	Program    string            `json:"program,omitempty"`
	Batch      string            `json:"batch,omitempty"`
}

// ReportView is a semester report with its credit sum.
type ReportView struct {
	models.SemesterReport
	TotalCredits int `json:"total_credits"`
}

// SyncStatus describes how the last mutation ended against the registrar.
type SyncStatus struct {
	Status   string           `json:"status"`
	Mutation *ledger.Mutation `json:"mutation,omitempty"`
	Error    *appErrors.Error `json:"error,omitempty"`
}

// LedgerView is the student registration screen.
type LedgerView struct {
	Profile          StudentProfile          `json:"profile"`
	CurrentSemester  int                     `json:"current_semester"`
	CreditTotal      int                     `json:"credit_total"`
	CreditCeiling    int                     `json:"credit_ceiling"`
	CreditsRemaining int                     `json:"credits_remaining"`
	Available        []catalog.SemesterGroup `json:"available"`
	Enrolled         []ledger.Entry          `json:"enrolled"`
	Held             []models.Course         `json:"held,omitempty"`
	Reports          []ReportView            `json:"reports"`
	SemesterOptions  []string                `json:"semester_options"`
	Sync             *SyncStatus             `json:"sync,omitempty"`
}
