package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/dto"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
)

type enrollmentService interface {
	Load(ctx context.Context) (*dto.LedgerView, error)
	AddCourse(ctx context.Context, courseID int) (*dto.LedgerView, error)
	RemoveCourse(ctx context.Context, courseID int) (*dto.LedgerView, error)
	Submit(ctx context.Context, courseIDs []int) (*dto.LedgerView, error)
}

// EnrollmentHandler exposes the student registration screen.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Dashboard godoc
// @Summary Student registration dashboard
// @Description Profile, available courses grouped by semester, selection, credit totals and semester reports
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /student/dashboard [get]
func (h *EnrollmentHandler) Dashboard(c *gin.Context) {
	view, err := h.service.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// AddCourse godoc
// @Summary Select a course
// @Description Adds a course to the selection when the credit ceiling allows it
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /student/courses/{id} [post]
func (h *EnrollmentHandler) AddCourse(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, func(ctx context.Context) (*dto.LedgerView, error) {
		return h.service.AddCourse(ctx, id)
	})
}

// RemoveCourse godoc
// @Summary Deselect a course
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /student/courses/{id} [delete]
func (h *EnrollmentHandler) RemoveCourse(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, func(ctx context.Context) (*dto.LedgerView, error) {
		return h.service.RemoveCourse(ctx, id)
	})
}

// Submit godoc
// @Summary Submit the selection
// @Description Sends the selection, plus any listed course ids, as one enroll batch
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitEnrollmentRequest false "Course ids to add before submitting"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /student/enrollment/submit [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req dto.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	h.respond(c, func(ctx context.Context) (*dto.LedgerView, error) {
		return h.service.Submit(ctx, req.CourseIDs)
	})
}

// respond returns the reverted view alongside a sync error so the client can redraw.
func (h *EnrollmentHandler) respond(c *gin.Context, run func(context.Context) (*dto.LedgerView, error)) {
	view, err := run(c.Request.Context())
	if err != nil {
		if view != nil {
			response.ErrorWithData(c, err, view)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
