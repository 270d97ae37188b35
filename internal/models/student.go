package models

import "strings"

// Student is a registrar student record.
type Student struct {
	ID              int              `json:"id"`
	Username        string           `json:"username"`
	FirstName       string           `json:"first_name,omitempty"`
	LastName        string           `json:"last_name,omitempty"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone,omitempty"`
	Address         string           `json:"address,omitempty"`
	Department      Department       `json:"department"`
	CurrentSemester FlexInt          `json:"current_semester,omitempty"`
	Batch           *Batch           `json:"batch,omitempty"`
	Program         *Program         `json:"program,omitempty"`
	EnrolledCourses []EnrolledCourse `json:"enrolled_courses,omitempty"`
}

// FullName falls back to the username (the registration number).
func (s Student) FullName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Username
	}
	return name
}

// BatchLabel is empty when no batch is attached.
func (s Student) BatchLabel() string {
	if s.Batch == nil {
		return ""
	}
	return s.Batch.Label()
}

// StudentDetail is the GET /getdetails/:id/ payload.
type StudentDetail struct {
	Student Student          `json:"student"`
	Reports []SemesterReport `json:"report"`
}

// StudentRegistration is a student creation request.
type StudentRegistration struct {
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Password  string `json:"password,omitempty"`
	Program   string `json:"program,omitempty"`
	Batch     string `json:"batch,omitempty"`
}
