package models

import (
	"encoding/json"
	"strings"
)

// ReportStatus is the approval state of a semester report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

// ParseReportStatus normalises case; ok is false for unknown values.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	switch ReportStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportStatusPending:
		return ReportStatusPending, true
	case ReportStatusApproved:
		return ReportStatusApproved, true
	case ReportStatusRejected:
		return ReportStatusRejected, true
	}
	return "", false
}

// UnmarshalJSON tolerates "Approved", "APPROVED" and empty values (pending).
func (s *ReportStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*s = ReportStatusPending
		return nil
	}
	if parsed, ok := ParseReportStatus(raw); ok {
		*s = parsed
		return nil
	}
	*s = ReportStatus(strings.ToLower(raw))
	return nil
}

// SemesterReport aggregates a student's enrollments for one semester.
type SemesterReport struct {
	ID       int              `json:"id"`
	Semester FlexInt          `json:"semester"`
	Status   ReportStatus     `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Courses  []EnrolledCourse `json:"enrolled_courses"`
	IsSaved  bool             `json:"isSaved,omitempty"`
}

// TotalCredits sums the credits of the report's courses.
func (r SemesterReport) TotalCredits() int {
	total := 0
	for _, e := range r.Courses {
		total += e.Course.Credit
	}
	return total
}

// ReviewDecision is the payload the registrar expects on PUT /hodDash/.
type ReviewDecision struct {
	ReportID int          `json:"report_id"`
	Status   ReportStatus `json:"status"`
	Reason   string       `json:"reason,omitempty"`
}
