package catalog

import (
	"strconv"
	"strings"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// CourseFilter narrows course lists. Empty fields impose no constraint.
type CourseFilter struct {
	Semester   string `form:"semester"`
	Program    string `form:"program"`
	Batch      string `form:"batch"`
	Department string `form:"department"`
	Search     string `form:"search"`
}

// StudentFilter narrows student lists. Empty fields impose no constraint.
type StudentFilter struct {
	Search     string `form:"search"`
	Department string `form:"department"`
	Semester   string `form:"semester"`
	Batch      string `form:"batch"`
}

// Empty reports whether no field is set.
func (f CourseFilter) Empty() bool {
	return f == CourseFilter{}
}

// Empty reports whether no field is set.
func (f StudentFilter) Empty() bool {
	return f == StudentFilter{}
}

// FilterCourses keeps courses matching every active field, in input order.
func FilterCourses(courses []models.Course, f CourseFilter) []models.Course {
	if f.Empty() {
		return courses
	}
	out := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if matchCourse(c, f) {
			out = append(out, c)
		}
	}
	return out
}

func matchCourse(c models.Course, f CourseFilter) bool {
	if v := strings.TrimSpace(f.Semester); v != "" && !sameSemester(c.Semester, v) {
		return false
	}
	if v := strings.TrimSpace(f.Program); v != "" && !strings.EqualFold(c.ProgramName(), v) {
		return false
	}
	if v := strings.TrimSpace(f.Department); v != "" {
		dept := ""
		if c.Department != nil {
			dept = c.Department.Name
		} else if c.Program != nil && c.Program.Department != nil {
			dept = c.Program.Department.Name
		}
		if !strings.EqualFold(dept, v) {
			return false
		}
	}
	if v := strings.TrimSpace(f.Batch); v != "" && !courseInBatch(c, v) {
		return false
	}
	if v := strings.TrimSpace(f.Search); v != "" && !containsFold(v, c.Name, c.Code) {
		return false
	}
	return true
}

func courseInBatch(c models.Course, label string) bool {
	want, err := models.ParseBatchLabel(label)
	if err != nil {
		return false
	}
	for _, b := range c.Batches {
		if b.Start == want.Start && b.End == want.End {
			return true
		}
	}
	return false
}

// FilterStudents keeps students matching every active field, in input order.
// Search matches username, email or full name.
func FilterStudents(students []models.Student, f StudentFilter) []models.Student {
	if f.Empty() {
		return students
	}
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		if matchStudent(s, f) {
			out = append(out, s)
		}
	}
	return out
}

func matchStudent(s models.Student, f StudentFilter) bool {
	if v := strings.TrimSpace(f.Department); v != "" && !strings.EqualFold(s.Department.Name, v) {
		return false
	}
	if v := strings.TrimSpace(f.Semester); v != "" && !sameSemester(strconv.Itoa(s.CurrentSemester.Int()), v) {
		return false
	}
	if v := strings.TrimSpace(f.Batch); v != "" {
		want, err := models.ParseBatchLabel(v)
		if err != nil || s.Batch == nil || s.Batch.Start != want.Start || s.Batch.End != want.End {
			return false
		}
	}
	if v := strings.TrimSpace(f.Search); v != "" && !containsFold(v, s.Username, s.Email, s.FullName()) {
		return false
	}
	return true
}

func sameSemester(have, want string) bool {
	have, want = strings.TrimSpace(have), strings.TrimSpace(want)
	hn, errH := strconv.Atoi(have)
	wn, errW := strconv.Atoi(want)
	if errH == nil && errW == nil {
		return hn == wn
	}
	return strings.EqualFold(have, want)
}

func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
