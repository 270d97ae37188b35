package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	"github.com/noah-isme/cbcs-registration/internal/service"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
)

type importService interface {
	Import(ctx context.Context, req service.ImportRequest) (*models.ImportResult, error)
	Enqueue(ctx context.Context, req service.ImportRequest) (*models.ImportJob, error)
	Job(ctx context.Context, id string) (*models.ImportJob, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	service     importService
	maxFileSize int64
}

// NewImportHandler constructs the handler. maxFileSize <= 0 disables the size check.
func NewImportHandler(svc importService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{service: svc, maxFileSize: maxFileSize}
}

// ImportCourses godoc
// @Summary Import courses
// @Description Creates one course per spreadsheet row. Rows fail independently.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX"
// @Param async query bool false "Run in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/imports/courses [post]
func (h *ImportHandler) ImportCourses(c *gin.Context) {
	h.run(c, models.ImportKindCourses)
}

// ImportStudents godoc
// @Summary Import students
// @Description Registers one student per spreadsheet row under the selected program.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX"
// @Param program formData string true "Program"
// @Param async query bool false "Run in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/imports/students [post]
func (h *ImportHandler) ImportStudents(c *gin.Context) {
	h.run(c, models.ImportKindStudents)
}

// Job godoc
// @Summary Background import status
// @Tags Imports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/imports/{id} [get]
func (h *ImportHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func (h *ImportHandler) run(c *gin.Context, kind models.ImportKind) {
	req, err := h.readUpload(c, kind)
	if err != nil {
		response.Error(c, err)
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job, err := h.service.Enqueue(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, dto.ImportAccepted{JobID: job.ID, Status: job.Status}, nil)
		return
	}

	result, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome := service.ImportOutcome(result); outcome != nil {
		response.ErrorWithData(c, outcome, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *ImportHandler) readUpload(c *gin.Context, kind models.ImportKind) (service.ImportRequest, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return service.ImportRequest{}, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		return service.ImportRequest{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize))
	}
	src, err := header.Open()
	if err != nil {
		return service.ImportRequest{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return service.ImportRequest{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
	}

	req := service.ImportRequest{
		Kind:     kind,
		Filename: header.Filename,
		Data:     data,
		Program:  strings.TrimSpace(c.PostForm("program")),
	}
	if kind == models.ImportKindStudents && req.Program == "" {
		return service.ImportRequest{}, appErrors.Clone(appErrors.ErrValidation, "program is required")
	}
	return req, nil
}
