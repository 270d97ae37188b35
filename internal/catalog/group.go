// Package catalog derives display views from course and student lists.
package catalog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// UnassignedBatch labels students without a batch.
const UnassignedBatch = "unassigned"

// SemesterGroup is one partition of GroupCoursesBySemester.
type SemesterGroup struct {
	Semester string          `json:"semester"`
	Courses  []models.Course `json:"courses"`
}

// BatchGroup is one partition of GroupStudentsByBatch.
type BatchGroup struct {
	Batch    string           `json:"batch"`
	Students []models.Student `json:"students"`
}

// GroupCoursesBySemester partitions courses by semester label. Groups are ordered by
// semester and each keeps the input's relative order.
func GroupCoursesBySemester(courses []models.Course) []SemesterGroup {
	index := make(map[string]int)
	var groups []SemesterGroup
	for _, c := range courses {
		label := strings.TrimSpace(c.Semester)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, SemesterGroup{Semester: label})
		}
		groups[i].Courses = append(groups[i].Courses, c)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return semesterLess(groups[a].Semester, groups[b].Semester)
	})
	return groups
}

// SortedSemesters returns the distinct semester labels in numeric order.
func SortedSemesters(courses []models.Course) []string {
	groups := GroupCoursesBySemester(courses)
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Semester)
	}
	return out
}

// SortCoursesBySemester orders courses by semester, stable within a semester.
func SortCoursesBySemester(courses []models.Course) []models.Course {
	out := append([]models.Course(nil), courses...)
	sort.SliceStable(out, func(a, b int) bool {
		return semesterLess(out[a].Semester, out[b].Semester)
	})
	return out
}

// GroupStudentsByBatch partitions students by batch label, newest batch first.
func GroupStudentsByBatch(students []models.Student) []BatchGroup {
	index := make(map[string]int)
	var groups []BatchGroup
	for _, s := range students {
		label := s.BatchLabel()
		if label == "" {
			label = UnassignedBatch
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, BatchGroup{Batch: label})
		}
		groups[i].Students = append(groups[i].Students, s)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Batch == UnassignedBatch || groups[b].Batch == UnassignedBatch {
			return groups[b].Batch == UnassignedBatch && groups[a].Batch != UnassignedBatch
		}
		return groups[a].Batch > groups[b].Batch
	})
	return groups
}

// SemesterOptions lists "1".."count" for semester pickers.
func SemesterOptions(count int) []string {
	if count <= 0 {
		return nil
	}
	out := make([]string, count)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func semesterLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
