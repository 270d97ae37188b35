package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
)

type reviewService interface {
	Overview(ctx context.Context) (*models.HODOverview, error)
	Decide(ctx context.Context, reportID int, status, reason string) (*models.SemesterReport, error)
}

// ReviewHandler serves the head-of-department approval screens.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Overview godoc
// @Summary HOD overview
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/overview [get]
func (h *ReviewHandler) Overview(c *gin.Context) {
	res, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Decide godoc
// @Summary Approve or reject a semester report
// @Description A rejection requires a reason. Decisions are sent once and not retried.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param payload body dto.ReviewDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reports/{id}/decision [put]
func (h *ReviewHandler) Decide(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	report, err := h.service.Decide(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ReviewDecisionResponse{
		ReportID: report.ID,
		Status:   report.Status,
		Reason:   report.Reason,
		IsSaved:  report.IsSaved,
	}, nil)
}
