package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	"github.com/noah-isme/cbcs-registration/internal/service"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
)

type adminService interface {
	Context(ctx context.Context) (*dto.AdminContextResponse, error)
	Students(ctx context.Context, q dto.StudentListQuery) (*dto.StudentListResponse, *models.Pagination, error)
	ExportStudents(ctx context.Context, filter catalog.StudentFilter, format service.ExportFormat) (*service.ExportFile, error)
	StudentDetail(ctx context.Context, id int) (*dto.StudentDetailResponse, error)
	StudentSheet(ctx context.Context, id int) (*service.ExportFile, error)
	Courses(ctx context.Context, q dto.CourseListQuery) (*dto.CourseListResponse, error)
	CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
}

// AdminHandler serves the HOD and admin screens.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Context godoc
// @Summary Reference data for admin forms
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/context [get]
func (h *AdminHandler) Context(c *gin.Context) {
	res, err := h.service.Context(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Students godoc
// @Summary List students
// @Description Filter students, then page them or group them by batch
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name, register number or email"
// @Param department query string false "Department name"
// @Param semester query string false "Current semester"
// @Param batch query string false "Batch label, e.g. 2021-2025"
// @Param group_by query string false "batch"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) Students(c *gin.Context) {
	var q dto.StudentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	res, pagination, err := h.service.Students(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, pagination)
}

// ExportStudents godoc
// @Summary Export students
// @Tags Admin
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv, xlsx or pdf"
// @Param search query string false "Matches name, register number or email"
// @Param department query string false "Department name"
// @Param semester query string false "Current semester"
// @Param batch query string false "Batch label"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/students/export [get]
func (h *AdminHandler) ExportStudents(c *gin.Context) {
	var filter catalog.StudentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.ExportStudents(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// StudentDetail godoc
// @Summary Student detail
// @Description One student with semester reports and credit totals
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *AdminHandler) StudentDetail(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.service.StudentDetail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// StudentSheet godoc
// @Summary Printable student sheet
// @Tags Admin
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id}/sheet [get]
func (h *AdminHandler) StudentSheet(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.StudentSheet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Courses godoc
// @Summary List courses
// @Description Filter courses, sorted by semester or grouped by semester
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param semester query string false "Semester"
// @Param program query string false "Program"
// @Param batch query string false "Batch label"
// @Param department query string false "Department"
// @Param search query string false "Matches name or code"
// @Param group_by query string false "semester"
// @Success 200 {object} response.Envelope
// @Router /admin/courses [get]
func (h *AdminHandler) Courses(c *gin.Context) {
	var q dto.CourseListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	res, err := h.service.Courses(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CreateCourse godoc
// @Summary Create a course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses [post]
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
