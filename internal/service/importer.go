package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/export"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// Spreadsheet columns.
const (
	colProgram     = "Program"
	colSemester    = "Semester"
	colBatch       = "Batch"
	colSubjectName = "Subject Name"
	colSubjectCode = "Subject Code"
	colCredit      = "Course Credit"
	colOptional    = "Is Optional"

	colRegisterNumber = "Register Number"
	colFirstName      = "First Name"
	colLastName       = "Last Name"
	colEmail          = "Email"
	colPhone          = "Phone"
	colAddress        = "Address"
	colPassword       = "Password"
)

// Import submission modes.
const (
	ImportModePerRow = "per_row"
	ImportModeBatch  = "batch"
)

var (
	courseColumns  = []string{colSubjectName, colSubjectCode, colSemester}
	studentColumns = []string{colRegisterNumber, colEmail}
)

type courseCreator interface {
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
	CreateBatch(ctx context.Context, reqs []models.CreateCourseRequest) (*models.BatchImportReply, error)
}

type studentRegistrar interface {
	Register(ctx context.Context, req models.StudentRegistration) error
	RegisterBatch(ctx context.Context, reqs []models.StudentRegistration) (*models.BatchImportReply, error)
}

// ImporterConfig controls row validation and submission.
type ImporterConfig struct {
	Mode          string
	SemesterCount int
}

// ImportRequest is one uploaded spreadsheet.
type ImportRequest struct {
	Kind     models.ImportKind
	Filename string
	Data     []byte
	// Program applies to every student row.
	Program string
}

// Importer turns spreadsheet rows into registrar creations with a per-row tally.
// Imports are not atomic: rows that reach the registrar stay created when later rows fail.
type Importer struct {
	courses   courseCreator
	students  studentRegistrar
	cache     *CacheService
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ImporterConfig
}

// NewImporter constructs an Importer. cache may be nil.
func NewImporter(courses courseCreator, students studentRegistrar, cache *CacheService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg ImporterConfig) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Mode != ImportModeBatch {
		cfg.Mode = ImportModePerRow
	}
	if cfg.SemesterCount <= 0 {
		cfg.SemesterCount = 8
	}
	return &Importer{courses: courses, students: students, cache: cache, validator: validate, metrics: metrics, logger: logger, cfg: cfg}
}

// Run parses and submits an import. Errors are returned only when the file itself is unusable.
func (i *Importer) Run(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	data, err := export.ReadDataset(req.Filename, bytes.NewReader(req.Data))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var result *models.ImportResult
	switch req.Kind {
	case models.ImportKindCourses:
		if err := requireColumns(data, courseColumns); err != nil {
			return nil, err
		}
		result = i.importCourses(ctx, data)
	case models.ImportKindStudents:
		if err := requireColumns(data, studentColumns); err != nil {
			return nil, err
		}
		result = i.importStudents(ctx, data, strings.TrimSpace(req.Program))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown import kind %q", req.Kind))
	}

	if result.Succeeded > 0 {
		name := CacheKeyCourses
		if req.Kind == models.ImportKindStudents {
			name = CacheKeyStudents
		}
		// Best effort: Invalidate logs failures and the stale list expires with its TTL.
		_ = i.cache.Invalidate(ctx, name)
	}
	i.metrics.RecordImportRows(string(req.Kind), result.Succeeded, result.Failed)
	i.logger.Info("import finished",
		zap.String("kind", string(req.Kind)),
		zap.String("file", req.Filename),
		zap.String("mode", i.cfg.Mode),
		zap.String("actor", session.FromContext(ctx).Actor()),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// pendingRow is a validated row awaiting submission.
type pendingRow[T any] struct {
	line       int
	identifier string
	payload    T
}

func (i *Importer) importCourses(ctx context.Context, data export.Dataset) *models.ImportResult {
	result := &models.ImportResult{Kind: models.ImportKindCourses, Total: len(data.Rows), Failures: []models.ImportFailure{}}
	seen := make(map[string]int)
	var rows []pendingRow[models.CreateCourseRequest]

	for n, row := range data.Rows {
		line := data.Line(n)
		req, err := i.courseFromRow(row)
		if err != nil {
			result.Fail(line, row[colSubjectCode], err.Error())
			continue
		}
		key := strings.ToUpper(req.Code)
		if first, dup := seen[key]; dup {
			result.Fail(line, req.Code, fmt.Sprintf("duplicate subject code, first seen on row %d", first))
			continue
		}
		seen[key] = line
		rows = append(rows, pendingRow[models.CreateCourseRequest]{line: line, identifier: req.Code, payload: req})
	}

	if i.cfg.Mode == ImportModeBatch {
		payloads := make([]models.CreateCourseRequest, len(rows))
		for n, r := range rows {
			payloads[n] = r.payload
		}
		submitBatch(ctx, result, rows, func(ctx context.Context) (*models.BatchImportReply, error) {
			return i.courses.CreateBatch(ctx, payloads)
		})
		return result
	}

	submitPerRow(ctx, result, rows, func(ctx context.Context, req models.CreateCourseRequest) error {
		_, err := i.courses.Create(ctx, req)
		return err
	})
	return result
}

func (i *Importer) importStudents(ctx context.Context, data export.Dataset, program string) *models.ImportResult {
	result := &models.ImportResult{Kind: models.ImportKindStudents, Total: len(data.Rows), Failures: []models.ImportFailure{}}
	seen := make(map[string]int)
	var rows []pendingRow[models.StudentRegistration]

	for n, row := range data.Rows {
		line := data.Line(n)
		req, err := i.studentFromRow(row, program)
		if err != nil {
			result.Fail(line, row[colRegisterNumber], err.Error())
			continue
		}
		key := strings.ToUpper(req.Username)
		if first, dup := seen[key]; dup {
			result.Fail(line, req.Username, fmt.Sprintf("duplicate register number, first seen on row %d", first))
			continue
		}
		seen[key] = line
		rows = append(rows, pendingRow[models.StudentRegistration]{line: line, identifier: req.Username, payload: req})
	}

	if i.cfg.Mode == ImportModeBatch {
		payloads := make([]models.StudentRegistration, len(rows))
		for n, r := range rows {
			payloads[n] = r.payload
		}
		submitBatch(ctx, result, rows, func(ctx context.Context) (*models.BatchImportReply, error) {
			return i.students.RegisterBatch(ctx, payloads)
		})
		return result
	}

	submitPerRow(ctx, result, rows, i.students.Register)
	return result
}

func (i *Importer) courseFromRow(row map[string]string) (models.CreateCourseRequest, error) {
	req := models.CreateCourseRequest{
		Program:    row[colProgram],
		Semester:   row[colSemester],
		Name:       row[colSubjectName],
		Code:       row[colSubjectCode],
		IsOptional: strings.EqualFold(row[colOptional], "yes"),
	}
	if raw := row[colCredit]; raw != "" {
		credit, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%s must be a whole number", colCredit)
		}
		req.Credit = credit
	} else {
		return req, fmt.Errorf("%s is required", colCredit)
	}
	if raw := row[colBatch]; raw != "" {
		batch, err := models.ParseBatchLabel(raw)
		if err != nil {
			return req, fmt.Errorf("%s must look like 2021-2025", colBatch)
		}
		req.Batch = batch.Label()
	}
	if err := i.validator.Struct(req); err != nil {
		return req, describeValidation(err)
	}
	if err := checkSemester(req.Semester, i.cfg.SemesterCount); err != nil {
		return req, err
	}
	return req, nil
}

func (i *Importer) studentFromRow(row map[string]string, program string) (models.StudentRegistration, error) {
	req := models.StudentRegistration{
		Username:  row[colRegisterNumber],
		FirstName: row[colFirstName],
		LastName:  row[colLastName],
		Email:     row[colEmail],
		Phone:     row[colPhone],
		Address:   row[colAddress],
		Password:  row[colPassword],
		Program:   program,
	}
	if raw := row[colBatch]; raw != "" {
		batch, err := models.ParseBatchLabel(raw)
		if err != nil {
			return req, fmt.Errorf("%s must look like 2021-2025", colBatch)
		}
		req.Batch = batch.Label()
	}
	if err := i.validator.Struct(req); err != nil {
		return req, describeValidation(err)
	}
	return req, nil
}

func submitPerRow[T any](ctx context.Context, result *models.ImportResult, rows []pendingRow[T], send func(context.Context, T) error) {
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			result.Fail(r.line, r.identifier, "import cancelled")
			continue
		}
		if err := send(ctx, r.payload); err != nil {
			result.Fail(r.line, r.identifier, appErrors.FromError(err).Message)
			continue
		}
		result.Succeeded++
	}
}

// submitBatch sends all valid rows at once. Rows the registrar does not report on count as created.
func submitBatch[T any](ctx context.Context, result *models.ImportResult, rows []pendingRow[T], send func(context.Context) (*models.BatchImportReply, error)) {
	if len(rows) == 0 {
		return
	}
	reply, err := send(ctx)
	if err != nil {
		msg := appErrors.FromError(err).Message
		for _, r := range rows {
			result.Fail(r.line, r.identifier, msg)
		}
		return
	}
	failed := make(map[int]string)
	if reply != nil {
		for _, res := range reply.Results {
			if !res.OK {
				msg := res.Error
				if msg == "" {
					msg = "rejected by registrar"
				}
				failed[res.Index] = msg
			}
		}
	}
	for n, r := range rows {
		if msg, ok := failed[n]; ok {
			result.Fail(r.line, r.identifier, msg)
			continue
		}
		result.Succeeded++
	}
}

func requireColumns(data export.Dataset, columns []string) error {
	have := make(map[string]struct{}, len(data.Headers))
	for _, h := range data.Headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range columns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "missing columns: "+strings.Join(missing, ", "))
	}
	return nil
}

func checkSemester(raw string, count int) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > count {
		return fmt.Errorf("%s must be between 1 and %d", colSemester, count)
	}
	return nil
}

// describeValidation renders validator errors as one readable line.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "numeric":
			parts = append(parts, fe.Field()+" must be a number")
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
