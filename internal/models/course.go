package models

import (
	"strconv"
	"strings"
)

// Course is a registrar course offering.
type Course struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	Semester   string      `json:"semester"`
	Credit     int         `json:"courseCredit"`
	IsOptional bool        `json:"is_optional"`
	Program    *Program    `json:"program,omitempty"`
	Department *Department `json:"department,omitempty"`
	Batches    []Batch     `json:"batch,omitempty"`
}

// SemesterNumber parses the semester label; zero when it is not numeric.
func (c Course) SemesterNumber() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Semester))
	if err != nil {
		return 0
	}
	return n
}

// ProgramName is empty when the course carries no program.
func (c Course) ProgramName() string {
	if c.Program == nil {
		return ""
	}
	return c.Program.Name
}

// EnrolledCourse is an enrollment record; ID is the record id, not the course id.
type EnrolledCourse struct {
	ID     int    `json:"id"`
	Course Course `json:"course"`
}

// CreateCourseRequest is the single-course creation payload.
type CreateCourseRequest struct {
	Program    string `json:"program,omitempty"`
	Batch      string `json:"batch,omitempty"`
	Semester   string `json:"semester" binding:"required" validate:"required,numeric"`
	Name       string `json:"name" binding:"required" validate:"required,max=50"`
	Code       string `json:"code" binding:"required" validate:"required,max=10"`
	Credit     int    `json:"courseCredit" validate:"gte=0"`
	IsOptional bool   `json:"is_optional"`
}

// SumCredits totals credit weights.
func SumCredits(courses []Course) int {
	total := 0
	for _, c := range courses {
		total += c.Credit
	}
	return total
}
