package dto

import (
	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/models"
)

// StudentListQuery binds the student list query string.
type StudentListQuery struct {
	catalog.StudentFilter
	GroupBy  string `form:"group_by"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CourseListQuery binds the course list query string.
type CourseListQuery struct {
	catalog.CourseFilter
	GroupBy string `form:"group_by"`
}

// StudentListResponse carries either a flat page or batch groups.
type StudentListResponse struct {
	Students []models.Student    `json:"students,omitempty"`
	Groups   []catalog.BatchGroup `json:"groups,omitempty"`
}

// CourseListResponse carries either a sorted list or semester groups.
type CourseListResponse struct {
	Courses   []models.Course         `json:"courses,omitempty"`
	Groups    []catalog.SemesterGroup `json:"groups,omitempty"`
	Semesters []string                `json:"semesters"`
}

// StudentDetailResponse is the admin view of one student.
type StudentDetailResponse struct {
	Student      models.Student `json:"student"`
	Reports      []ReportView   `json:"reports"`
	TotalCredits int            `json:"total_credits"`
}

// AdminContextResponse feeds course and import forms.
type AdminContextResponse struct {
	models.AdminContext
	SemesterOptions []string `json:"semester_options"`
	BatchLabels     []string `json:"batch_labels"`
}
