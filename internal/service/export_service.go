package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/export"
)

// ExportFormat selects the rendering of a roster export.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

var exportContentTypes = map[ExportFormat]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatPDF:  "application/pdf",
}

// ParseExportFormat defaults to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if f == "" {
		return ExportFormatCSV, nil
	}
	if _, ok := exportContentTypes[f]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
	return f, nil
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderSheet(sheet export.Sheet) ([]byte, error)
}

// ExportService renders student rosters and printable student sheets.
type ExportService struct {
	csv        csvRenderer
	xlsx       xlsxRenderer
	pdf        pdfRenderer
	letterhead export.Letterhead
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService; nil renderers fall back to the pkg/export defaults.
func NewExportService(letterhead export.Letterhead, logger *zap.Logger, csv csvRenderer, xlsx xlsxRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithBOM())
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter("Students")
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		csv:        csv,
		xlsx:       xlsx,
		pdf:        pdf,
		letterhead: letterhead,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var rosterHeaders = []string{"Register Number", "Name", "Email", "Phone", "Department", "Program", "Batch", "Semester"}

// StudentRoster renders the students in the requested format.
func (s *ExportService) StudentRoster(students []models.Student, format ExportFormat) (*ExportFile, error) {
	data := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(students))}
	for _, st := range students {
		program := ""
		if st.Program != nil {
			program = st.Program.Name
		}
		semester := ""
		if st.CurrentSemester.Int() > 0 {
			semester = strconv.Itoa(st.CurrentSemester.Int())
		}
		data.Rows = append(data.Rows, map[string]string{
			"Register Number": st.Username,
			"Name":            st.FullName(),
			"Email":           st.Email,
			"Phone":           st.Phone,
			"Department":      st.Department.Name,
			"Program":         program,
			"Batch":           st.BatchLabel(),
			"Semester":        semester,
		})
	}

	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(data)
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(data)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(data, "Student Roster")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("roster export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("students_%s.%s", s.now().Format("20060102_150405"), format),
		ContentType: exportContentTypes[format],
		Data:        payload,
	}, nil
}

// StudentSheet renders the printable detail sheet of one student.
func (s *ExportService) StudentSheet(detail *models.StudentDetail) (*ExportFile, error) {
	if detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	st := detail.Student
	program := ""
	if st.Program != nil {
		program = st.Program.Name
	}
	fields := []export.Field{
		{Label: "Register Number", Value: st.Username},
		{Label: "Name", Value: st.FullName()},
		{Label: "Email", Value: st.Email},
		{Label: "Phone", Value: st.Phone},
		{Label: "Department", Value: st.Department.Name},
		{Label: "Program", Value: program},
		{Label: "Batch", Value: st.BatchLabel()},
	}
	if st.CurrentSemester.Int() > 0 {
		fields = append(fields, export.Field{Label: "Current Semester", Value: strconv.Itoa(st.CurrentSemester.Int())})
	}

	courses := sheetCourses(detail)
	table := export.Dataset{Headers: []string{"Sl No", "Course", "Code", "Semester", "Credits"}}
	total := 0
	for i, c := range courses {
		total += c.Credit
		table.Rows = append(table.Rows, map[string]string{
			"Sl No":    strconv.Itoa(i + 1),
			"Course":   c.Name,
			"Code":     c.Code,
			"Semester": c.Semester,
			"Credits":  strconv.Itoa(c.Credit),
		})
	}

	payload, err := s.pdf.RenderSheet(export.Sheet{
		Letterhead: s.letterhead,
		Title:      "Student Course Registration",
		Fields:     fields,
		Table:      table,
		Widths:     []float64{1, 5, 2, 1.5, 1.5},
		Footer:     fmt.Sprintf("Total credits: %d", total),
	})
	if err != nil {
		s.logger.Error("student sheet render failed", zap.String("student", st.Username), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render student sheet")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("student_%s.pdf", sanitizeFilename(st.Username)),
		ContentType: exportContentTypes[ExportFormatPDF],
		Data:        payload,
	}, nil
}

// sheetCourses lists the courses of every report, falling back to the student's enrollments.
func sheetCourses(detail *models.StudentDetail) []models.Course {
	var out []models.Course
	for _, r := range detail.Reports {
		for _, e := range r.Courses {
			out = append(out, e.Course)
		}
	}
	if len(out) == 0 {
		for _, e := range detail.Student.EnrolledCourses {
			out = append(out, e.Course)
		}
	}
	return out
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
