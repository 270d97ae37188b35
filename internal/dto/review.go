package dto

import "github.com/noah-isme/cbcs-registration/internal/models"

// ReviewDecisionRequest is the body of PUT /admin/reports/:id/decision.
type ReviewDecisionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// ReviewDecisionResponse echoes a saved decision.
type ReviewDecisionResponse struct {
	ReportID int                 `json:"report_id"`
	Status   models.ReportStatus `json:"status"`
	Reason   string              `json:"reason,omitempty"`
	IsSaved  bool                `json:"isSaved"`
}
