package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// List grouping modes.
const (
	GroupByBatch    = "batch"
	GroupBySemester = "semester"
)

type adminContextSource interface {
	Context(ctx context.Context) (*models.AdminContext, error)
}

type studentDirectory interface {
	List(ctx context.Context) ([]models.Student, error)
	Detail(ctx context.Context, id int) (*models.StudentDetail, error)
}

type courseCatalog interface {
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
}

type rosterExporter interface {
	StudentRoster(students []models.Student, format ExportFormat) (*ExportFile, error)
	StudentSheet(detail *models.StudentDetail) (*ExportFile, error)
}

// AdminConfig carries the catalog rules admin forms validate against.
type AdminConfig struct {
	SemesterCount int
}

// AdminService serves the staff screens: reference data, students and courses.
type AdminService struct {
	reference adminContextSource
	students  studentDirectory
	courses   courseCatalog
	exporter  rosterExporter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AdminConfig
}

// NewAdminService constructs an AdminService. cache may be nil.
func NewAdminService(reference adminContextSource, students studentDirectory, courses courseCatalog, exporter rosterExporter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg AdminConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SemesterCount <= 0 {
		cfg.SemesterCount = 8
	}
	return &AdminService{
		reference: reference,
		students:  students,
		courses:   courses,
		exporter:  exporter,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Context returns programs, batches and department for course and import forms.
func (s *AdminService) Context(ctx context.Context) (*dto.AdminContextResponse, error) {
	ref, err := cached(ctx, s.cache, CacheKeyAdminContext, func(ctx context.Context) (models.AdminContext, error) {
		out, err := s.reference.Context(ctx)
		if err != nil || out == nil {
			return models.AdminContext{}, err
		}
		return *out, nil
	})
	if err != nil {
		return nil, err
	}

	batches := append([]models.Batch(nil), ref.Batches...)
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].Start > batches[j].Start })
	labels := make([]string, 0, len(batches))
	for _, b := range batches {
		labels = append(labels, b.Label())
	}
	return &dto.AdminContextResponse{
		AdminContext:    ref,
		SemesterOptions: catalog.SemesterOptions(s.cfg.SemesterCount),
		BatchLabels:     labels,
	}, nil
}

// Students lists students with filters, then either groups them by batch or pages them.
func (s *AdminService) Students(ctx context.Context, q dto.StudentListQuery) (*dto.StudentListResponse, *models.Pagination, error) {
	groupBy := strings.ToLower(strings.TrimSpace(q.GroupBy))
	if groupBy != "" && groupBy != GroupByBatch {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "group_by must be batch")
	}
	students, err := s.filteredStudents(ctx, q.StudentFilter)
	if err != nil {
		return nil, nil, err
	}
	if groupBy == GroupByBatch {
		return &dto.StudentListResponse{Groups: catalog.GroupStudentsByBatch(students)}, nil, nil
	}
	page, pagination := catalog.Paginate(students, q.Page, q.PageSize)
	return &dto.StudentListResponse{Students: page}, pagination, nil
}

// ExportStudents renders every student matching the filter.
func (s *AdminService) ExportStudents(ctx context.Context, filter catalog.StudentFilter, format ExportFormat) (*ExportFile, error) {
	students, err := s.filteredStudents(ctx, filter)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.StudentRoster(students, format)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student roster exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(students)),
		zap.String("actor", session.FromContext(ctx).Actor()),
	)
	return file, nil
}

// StudentDetail returns one student with semester reports and credit totals.
func (s *AdminService) StudentDetail(ctx context.Context, id int) (*dto.StudentDetailResponse, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	reports := reportViews(detail.Reports)
	total := 0
	for _, r := range reports {
		total += r.TotalCredits
	}
	return &dto.StudentDetailResponse{Student: detail.Student, Reports: reports, TotalCredits: total}, nil
}

// StudentSheet renders the printable registration sheet of one student.
func (s *AdminService) StudentSheet(ctx context.Context, id int) (*ExportFile, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.StudentSheet(detail)
}

// Courses lists courses with filters, sorted by semester, optionally grouped by semester.
func (s *AdminService) Courses(ctx context.Context, q dto.CourseListQuery) (*dto.CourseListResponse, error) {
	groupBy := strings.ToLower(strings.TrimSpace(q.GroupBy))
	if groupBy != "" && groupBy != GroupBySemester {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group_by must be semester")
	}
	courses, err := cached(ctx, s.cache, CacheKeyCourses, s.courses.List)
	if err != nil {
		return nil, err
	}
	filtered := catalog.FilterCourses(courses, q.CourseFilter)
	resp := &dto.CourseListResponse{Semesters: catalog.SortedSemesters(filtered)}
	if groupBy == GroupBySemester {
		resp.Groups = catalog.GroupCoursesBySemester(filtered)
	} else {
		resp.Courses = catalog.SortCoursesBySemester(filtered)
	}
	return resp, nil
}

// CreateCourse validates and creates one course.
func (s *AdminService) CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	req.Program = strings.TrimSpace(req.Program)
	req.Batch = strings.TrimSpace(req.Batch)
	req.Semester = strings.TrimSpace(req.Semester)
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, describeValidation(err).Error())
	}
	if err := checkSemester(req.Semester, s.cfg.SemesterCount); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.Batch != "" {
		batch, err := models.ParseBatchLabel(req.Batch)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "batch must look like 2021-2025")
		}
		req.Batch = batch.Label()
	}

	course, err := s.courses.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, CacheKeyCourses)
	s.logger.Info("course created",
		zap.String("code", req.Code),
		zap.String("semester", req.Semester),
		zap.String("actor", session.FromContext(ctx).Actor()),
	)
	return course, nil
}

func (s *AdminService) filteredStudents(ctx context.Context, filter catalog.StudentFilter) ([]models.Student, error) {
	students, err := cached(ctx, s.cache, CacheKeyStudents, s.students.List)
	if err != nil {
		return nil, err
	}
	return catalog.FilterStudents(students, filter), nil
}

func (s *AdminService) detail(ctx context.Context, id int) (*models.StudentDetail, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	return s.students.Detail(ctx, id)
}
