package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/jobs"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type recordingCourses struct {
	created []models.CreateCourseRequest
	batches [][]models.CreateCourseRequest
	reject  map[string]error
	reply   *models.BatchImportReply
	tokens  []string
}

func (r *recordingCourses) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	r.tokens = append(r.tokens, session.Token(ctx))
	if err, ok := r.reject[req.Code]; ok {
		return nil, err
	}
	r.created = append(r.created, req)
	return &models.Course{Code: req.Code, Name: req.Name}, nil
}

func (r *recordingCourses) CreateBatch(_ context.Context, reqs []models.CreateCourseRequest) (*models.BatchImportReply, error) {
	r.batches = append(r.batches, reqs)
	return r.reply, nil
}

type recordingStudents struct {
	registered []models.StudentRegistration
	batchErr   error
}

func (r *recordingStudents) Register(_ context.Context, req models.StudentRegistration) error {
	r.registered = append(r.registered, req)
	return nil
}

func (r *recordingStudents) RegisterBatch(_ context.Context, reqs []models.StudentRegistration) (*models.BatchImportReply, error) {
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	r.registered = append(r.registered, reqs...)
	return nil, nil
}

const courseSheet = "Program,Semester,Batch,Subject Name,Subject Code,Course Credit,Is Optional\n" +
	"BTech,1,2021-2025,Mathematics I,MA101,4,No\n" +
	"BTech,1,2021-2025,Physics,PH101,3,No\n" +
	"BTech,x,2021-2025,Broken Row,BR101,3,No\n" +
	"BTech,2,2021-2025,Chemistry,CH102,3,Yes\n" +
	"BTech,2,,Workshop,WS102,2,No\n"

func TestImporterCoursesPerRowTallies(t *testing.T) {
	courses := &recordingCourses{}
	importer := NewImporter(courses, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{SemesterCount: 8})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 3, result.Failures[0].Row)
	assert.Equal(t, "BR101", result.Failures[0].Identifier)
	assert.Contains(t, result.Failures[0].Message, "Semester")
	assert.True(t, result.Partial())

	require.Len(t, courses.created, 4)
	assert.True(t, courses.created[2].IsOptional)
	assert.Equal(t, "2021-2025", courses.created[0].Batch)

	err = ImportOutcome(result)
	assert.True(t, errors.Is(err, appErrors.ErrPartialBatch))
}

type brokenDeleteCache struct {
	*memoryCache
}

func (brokenDeleteCache) Delete(context.Context, string) error {
	return errors.New("redis unavailable")
}

func TestImporterInvalidatesCourseCache(t *testing.T) {
	ctx := session.WithSession(context.Background(), &session.Session{Username: "admin", UserType: "ADMIN"})
	store := newMemoryCache()
	cache := NewCacheService(store, nil, time.Minute, nil, true)
	require.NoError(t, cache.Set(ctx, CacheKeyCourses, []models.Course{{ID: 1}}))

	importer := NewImporter(&recordingCourses{}, &recordingStudents{}, cache, nil, nil, nil, ImporterConfig{SemesterCount: 8})
	_, err := importer.Run(ctx, ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)

	var cached []models.Course
	hit, err := cache.Get(ctx, CacheKeyCourses, &cached)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestImporterSurvivesCacheInvalidateFailure(t *testing.T) {
	cache := NewCacheService(brokenDeleteCache{newMemoryCache()}, nil, time.Minute, nil, true)
	importer := NewImporter(&recordingCourses{}, &recordingStudents{}, cache, nil, nil, nil, ImporterConfig{SemesterCount: 8})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}

func TestImporterRecordsRegistrarRejections(t *testing.T) {
	courses := &recordingCourses{reject: map[string]error{
		"PH101": appErrors.Clone(appErrors.ErrConflict, "course code already exists"),
	}}
	importer := NewImporter(courses, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "course code already exists", result.Failures[1].Message)
}

func TestImporterRejectsDuplicateCodes(t *testing.T) {
	sheet := "Semester,Subject Name,Subject Code,Course Credit\n" +
		"1,Maths,MA101,4\n" +
		"1,Maths again,ma101,4\n"
	importer := NewImporter(&recordingCourses{}, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "c.csv", Data: []byte(sheet)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Message, "row 1")
}

func TestImporterValidatesRows(t *testing.T) {
	sheet := "Semester,Subject Name,Subject Code,Course Credit\n" +
		"9,Too Late,LT101,3\n" +
		"1,,NN101,3\n" +
		"1,Negative,NG101,-1\n" +
		"1,No Credit,NC101,\n" +
		"1,Long Code,ABCDEFGHIJKLM,3\n"
	courses := &recordingCourses{}
	importer := NewImporter(courses, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{SemesterCount: 8})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "c.csv", Data: []byte(sheet)})
	require.NoError(t, err)
	assert.Zero(t, result.Succeeded)
	assert.Equal(t, 5, result.Failed)
	assert.Empty(t, courses.created)
	assert.True(t, appErrors.IsValidation(ImportOutcome(result)))
}

func TestImporterBatchModeMapsReply(t *testing.T) {
	courses := &recordingCourses{reply: &models.BatchImportReply{Results: []models.BatchRowResult{
		{Index: 0, OK: true},
		{Index: 1, OK: false, Error: "duplicate code"},
	}}}
	importer := NewImporter(courses, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{Mode: ImportModeBatch})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)

	require.Len(t, courses.batches, 1)
	assert.Len(t, courses.batches[0], 4)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "PH101", result.Failures[1].Identifier)
	assert.Equal(t, "duplicate code", result.Failures[1].Message)
}

func TestImporterStudentsCarryProgram(t *testing.T) {
	sheet := "Register Number,First Name,Last Name,Email,Batch\n" +
		"21CS001,Asha,Rao,asha@example.com,2021-2025\n" +
		"21CS002,Ravi,,not-an-email,2021-2025\n"
	students := &recordingStudents{}
	importer := NewImporter(&recordingCourses{}, students, nil, nil, nil, nil, ImporterConfig{})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindStudents, Filename: "s.csv", Data: []byte(sheet), Program: " BTech CSE "})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, students.registered, 1)
	assert.Equal(t, "BTech CSE", students.registered[0].Program)
	assert.Contains(t, result.Failures[0].Message, "Email")
}

func TestImporterBatchFailureFailsAllRows(t *testing.T) {
	sheet := "Register Number,Email\n21CS001,a@example.com\n21CS002,b@example.com\n"
	students := &recordingStudents{batchErr: appErrors.Clone(appErrors.ErrNetwork, "registrar unavailable")}
	importer := NewImporter(&recordingCourses{}, students, nil, nil, nil, nil, ImporterConfig{Mode: ImportModeBatch})

	result, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindStudents, Filename: "s.csv", Data: []byte(sheet)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "registrar unavailable", result.Failures[0].Message)
}

func TestImporterRejectsUnusableFiles(t *testing.T) {
	importer := NewImporter(&recordingCourses{}, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{})

	_, err := importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "c.txt", Data: []byte("x")})
	assert.True(t, appErrors.IsValidation(err))

	_, err = importer.Run(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "c.csv", Data: []byte("Name,Code\nA,B\n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subject Name")
}

type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.ImportJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[string]models.ImportJob)}
}

func (m *memoryJobStore) Save(_ context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryJobStore) Find(_ context.Context, id string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &job, nil
}

type capturingQueue struct {
	jobs []jobs.Job
}

func (q *capturingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func TestImportServiceEnqueueAndWorker(t *testing.T) {
	courses := &recordingCourses{}
	importer := NewImporter(courses, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{})
	store := newMemoryJobStore()
	queue := &capturingQueue{}
	svc := NewImportService(importer, store, queue, nil)

	ctx := session.WithSession(context.Background(), &session.Session{Username: "admin", Token: "tok"})
	job, err := svc.Enqueue(ctx, ImportRequest{Kind: models.ImportKindCourses, Filename: "courses.csv", Data: []byte(courseSheet)})
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobQueued, job.Status)
	assert.Equal(t, "admin", job.CreatedBy)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "import:courses", queue.jobs[0].Type)

	worker := NewImportWorker(importer, store, nil)
	require.NoError(t, worker.Handle(context.Background(), queue.jobs[0]))

	stored, err := svc.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobFinished, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 4, stored.Result.Succeeded)
	assert.NotNil(t, stored.FinishedAt)
	for _, tok := range courses.tokens {
		assert.Equal(t, "tok", tok)
	}
}

func TestImportWorkerMarksUnusableFileFailed(t *testing.T) {
	importer := NewImporter(&recordingCourses{}, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{})
	store := newMemoryJobStore()
	queue := &capturingQueue{}
	svc := NewImportService(importer, store, queue, nil)

	job, err := svc.Enqueue(context.Background(), ImportRequest{Kind: models.ImportKindCourses, Filename: "c.pdf", Data: []byte("x")})
	require.NoError(t, err)

	worker := NewImportWorker(importer, store, nil)
	require.NoError(t, worker.Handle(context.Background(), queue.jobs[0]))

	stored, err := svc.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestImportServiceWithoutQueue(t *testing.T) {
	svc := NewImportService(NewImporter(&recordingCourses{}, &recordingStudents{}, nil, nil, nil, nil, ImporterConfig{}), nil, nil, nil)
	_, err := svc.Enqueue(context.Background(), ImportRequest{Kind: models.ImportKindCourses})
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Job(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestImportWorkerGiveUpMarksFailed(t *testing.T) {
	store := newMemoryJobStore()
	require.NoError(t, store.Save(context.Background(), &models.ImportJob{ID: "job-1", Status: models.ImportJobQueued}))
	worker := NewImportWorker(nil, store, nil)

	worker.GiveUp(context.Background(), jobs.Job{ID: "job-1"}, appErrors.Clone(appErrors.ErrNetwork, "registrar unavailable"))

	job, err := store.Find(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobFailed, job.Status)
	assert.Equal(t, "registrar unavailable", job.Error)
	assert.NotNil(t, job.FinishedAt)
}
