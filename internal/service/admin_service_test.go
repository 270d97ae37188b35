package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/export"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAdminSource struct {
	ctx   *models.AdminContext
	calls int
}

func (f *fakeAdminSource) Context(context.Context) (*models.AdminContext, error) {
	f.calls++
	return f.ctx, nil
}

type fakeDirectory struct {
	students []models.Student
	details  map[int]*models.StudentDetail
	calls    int
}

func (f *fakeDirectory) List(context.Context) ([]models.Student, error) {
	f.calls++
	return f.students, nil
}

func (f *fakeDirectory) Detail(_ context.Context, id int) (*models.StudentDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return d, nil
}

type fakeCatalog struct {
	courses []models.Course
	created []models.CreateCourseRequest
	calls   int
}

func (f *fakeCatalog) List(context.Context) ([]models.Course, error) {
	f.calls++
	return f.courses, nil
}

func (f *fakeCatalog) Create(_ context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	f.created = append(f.created, req)
	return &models.Course{ID: 99, Name: req.Name, Code: req.Code, Semester: req.Semester, Credit: req.Credit}, nil
}

func adminFixture() (*AdminService, *fakeAdminSource, *fakeDirectory, *fakeCatalog) {
	source := &fakeAdminSource{ctx: &models.AdminContext{
		Programs: []models.Program{{ID: 1, Name: "BTech"}},
		Batches:  []models.Batch{{ID: 1, Start: 2020, End: 2024}, {ID: 2, Start: 2022, End: 2026}},
	}}
	dir := &fakeDirectory{
		students: []models.Student{
			{ID: 1, Username: "20CS001", FirstName: "Asha", Email: "asha@example.com", Batch: &models.Batch{Start: 2020, End: 2024}, Department: models.Department{Name: "CSE"}},
			{ID: 2, Username: "22CS001", FirstName: "Ravi", Email: "ravi@example.com", Batch: &models.Batch{Start: 2022, End: 2026}, Department: models.Department{Name: "CSE"}},
			{ID: 3, Username: "22EE001", FirstName: "Meera", Email: "meera@example.com", Department: models.Department{Name: "EEE"}},
		},
		details: map[int]*models.StudentDetail{
			1: {
				Student: models.Student{ID: 1, Username: "20CS001"},
				Reports: []models.SemesterReport{
					{ID: 7, Semester: 1, Courses: []models.EnrolledCourse{{ID: 1, Course: models.Course{Credit: 4}}, {ID: 2, Course: models.Course{Credit: 3}}}},
					{ID: 8, Semester: 2, Courses: []models.EnrolledCourse{{ID: 3, Course: models.Course{Credit: 5}}}},
				},
			},
		},
	}
	cat := &fakeCatalog{courses: []models.Course{
		{ID: 1, Name: "Data Structures", Code: "CS201", Semester: "3", Credit: 4},
		{ID: 2, Name: "Mathematics I", Code: "MA101", Semester: "1", Credit: 4},
		{ID: 3, Name: "Algorithms", Code: "CS301", Semester: "3", Credit: 4},
		{ID: 4, Name: "Physics", Code: "PH101", Semester: "1", Credit: 3},
	}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewAdminService(source, dir, cat, NewExportService(export.Letterhead{}, nil, nil, nil, nil), cache, nil, nil, AdminConfig{SemesterCount: 8})
	return svc, source, dir, cat
}

func adminContext() context.Context {
	return session.WithSession(context.Background(), &session.Session{Username: "hod", UserType: "HOD"})
}

func TestAdminContextOrdersBatchesAndCaches(t *testing.T) {
	svc, source, _, _ := adminFixture()
	ctx := adminContext()

	resp, err := svc.Context(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-2026", "2020-2024"}, resp.BatchLabels)
	assert.Len(t, resp.SemesterOptions, 8)
	assert.Equal(t, "BTech", resp.Programs[0].Name)

	_, err = svc.Context(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestAdminStudentsFilterAndPaginate(t *testing.T) {
	svc, _, _, _ := adminFixture()

	resp, page, err := svc.Students(adminContext(), dto.StudentListQuery{
		StudentFilter: catalog.StudentFilter{Department: "CSE"},
		PageSize:      1,
		Page:          2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Students, 1)
	assert.Equal(t, "22CS001", resp.Students[0].Username)
	assert.Equal(t, 2, page.TotalCount)
}

func TestAdminStudentsGroupByBatch(t *testing.T) {
	svc, _, _, _ := adminFixture()

	resp, page, err := svc.Students(adminContext(), dto.StudentListQuery{GroupBy: "batch"})
	require.NoError(t, err)
	assert.Nil(t, page)
	require.Len(t, resp.Groups, 3)
	assert.Equal(t, "2022-2026", resp.Groups[0].Batch)
	assert.Equal(t, catalog.UnassignedBatch, resp.Groups[2].Batch)

	_, _, err = svc.Students(adminContext(), dto.StudentListQuery{GroupBy: "program"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAdminStudentDetailTotals(t *testing.T) {
	svc, _, _, _ := adminFixture()

	resp, err := svc.StudentDetail(adminContext(), 1)
	require.NoError(t, err)
	assert.Equal(t, 12, resp.TotalCredits)
	require.Len(t, resp.Reports, 2)
	assert.Equal(t, 7, resp.Reports[0].TotalCredits)

	_, err = svc.StudentDetail(adminContext(), 0)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.StudentDetail(adminContext(), 5)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAdminExportStudentsAppliesFilter(t *testing.T) {
	svc, _, _, _ := adminFixture()

	file, err := svc.ExportStudents(adminContext(), catalog.StudentFilter{Search: "meera"}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "22EE001")
	assert.NotContains(t, string(file.Data), "20CS001")
}

func TestAdminStudentSheet(t *testing.T) {
	svc, _, _, _ := adminFixture()

	file, err := svc.StudentSheet(adminContext(), 1)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
}

func TestAdminCoursesSortedAndGrouped(t *testing.T) {
	svc, _, _, cat := adminFixture()
	ctx := adminContext()

	resp, err := svc.Courses(ctx, dto.CourseListQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Courses, 4)
	assert.Equal(t, []string{"1", "3"}, resp.Semesters)
	assert.Equal(t, "MA101", resp.Courses[0].Code)
	assert.Equal(t, "PH101", resp.Courses[1].Code)
	assert.Equal(t, "CS201", resp.Courses[2].Code)

	resp, err = svc.Courses(ctx, dto.CourseListQuery{GroupBy: "semester", CourseFilter: catalog.CourseFilter{Semester: "3"}})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "3", resp.Groups[0].Semester)
	assert.Len(t, resp.Groups[0].Courses, 2)
	assert.Equal(t, 1, cat.calls)
}

func TestAdminCreateCourseValidatesAndInvalidates(t *testing.T) {
	svc, _, _, cat := adminFixture()
	ctx := adminContext()

	_, err := svc.Courses(ctx, dto.CourseListQuery{})
	require.NoError(t, err)

	_, err = svc.CreateCourse(ctx, models.CreateCourseRequest{Semester: "9", Name: "Late", Code: "LT901", Credit: 3})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.CreateCourse(ctx, models.CreateCourseRequest{Semester: "1", Name: " ", Code: "NN101"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.CreateCourse(ctx, models.CreateCourseRequest{Semester: "1", Name: "Negative", Code: "NG101", Credit: -2})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, cat.created)

	course, err := svc.CreateCourse(ctx, models.CreateCourseRequest{Semester: " 2 ", Name: " Workshop ", Code: "WS102", Credit: 2, Batch: "2021 - 2025"})
	require.NoError(t, err)
	assert.Equal(t, 99, course.ID)
	require.Len(t, cat.created, 1)
	assert.Equal(t, "Workshop", cat.created[0].Name)
	assert.Equal(t, "2021-2025", cat.created[0].Batch)

	_, err = svc.Courses(ctx, dto.CourseListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.calls)
}

func TestCacheServiceScopesKeysPerUser(t *testing.T) {
	store := newMemoryCache()
	cache := NewCacheService(store, nil, 0, nil, true)

	alice := session.WithSession(context.Background(), &session.Session{Username: "alice"})
	bob := session.WithSession(context.Background(), &session.Session{Username: "bob"})
	require.NoError(t, cache.Set(alice, CacheKeyCourses, []string{"a"}))

	var out []string
	hit, err := cache.Get(bob, CacheKeyCourses, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = cache.Get(alice, CacheKeyCourses, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)
	assert.Contains(t, store.data, "cache:alice:courses")

	require.NoError(t, cache.Invalidate(alice, CacheKeyCourses))
	hit, _ = cache.Get(alice, CacheKeyCourses, &out)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	hit, err := nilCache.Get(context.Background(), "x", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilCache.Invalidate(context.Background(), "x"))
}
