package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/handler"
	"github.com/noah-isme/cbcs-registration/internal/models"
	"github.com/noah-isme/cbcs-registration/internal/repository"
	"github.com/noah-isme/cbcs-registration/internal/service"
	"github.com/noah-isme/cbcs-registration/pkg/config"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/errtrack"
	"github.com/noah-isme/cbcs-registration/pkg/export"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryStore) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

// fakeRegistrar keeps one student's enrollment in memory.
type fakeRegistrar struct {
	mu       sync.Mutex
	enrolled map[int]bool
	posts    []models.EnrollmentRequest
}

var registrarCourses = []models.Course{
	{ID: 1, Name: "Data Structures", Code: "CS201", Semester: "3", Credit: 20},
	{ID: 2, Name: "Compilers", Code: "CS301", Semester: "3", Credit: 4},
	{ID: 3, Name: "Networks", Code: "CS302", Semester: "3", Credit: 15},
}

func (f *fakeRegistrar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/login/":
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		userType := models.UserTypeStudent
		if req.Username == "hod" {
			userType = models.UserTypeHOD
		}
		_ = json.NewEncoder(w).Encode(models.RegistrarLogin{Token: "reg-" + req.Username, UserType: userType, ID: 1, Username: req.Username})
	case r.URL.Path == "/studDash/" && r.Method == http.MethodGet:
		dash := models.StudentDashboard{Username: "21CS001", FirstName: "Asha", CurrentSemester: 3}
		for _, c := range registrarCourses {
			if f.enrolled[c.ID] {
				dash.EnrolledCourses = append(dash.EnrolledCourses, models.EnrolledCourse{ID: 100 + c.ID, Course: c})
				continue
			}
			dash.AvailableCourses = append(dash.AvailableCourses, c)
		}
		_ = json.NewEncoder(w).Encode(dash)
	case r.URL.Path == "/studDash/" && r.Method == http.MethodPost:
		var req models.EnrollmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.posts = append(f.posts, req)
		for _, id := range req.CourseIDs {
			f.enrolled[id] = req.Type == models.EnrollmentActionEnroll
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func buildRouter(t *testing.T) (*gin.Engine, *fakeRegistrar) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := &fakeRegistrar{enrolled: map[int]bool{1: true}}
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)

	store := &memoryStore{data: map[string][]byte{}}
	metrics := service.NewMetricsService()
	client := repository.NewRegistrarClient(config.RegistrarConfig{BaseURL: srv.URL, Timeout: time.Second, AuthScheme: "Token"}, nil, metrics, nil)

	authSvc := service.NewAuthService(repository.NewAuthRepository(client), repository.NewSessionRepository(store), nil, nil, metrics, nil, service.AuthConfig{
		Secret: "test-secret",
		TTL:    time.Hour,
		Issuer: "cbcs-test",
	})
	enrollmentSvc := service.NewEnrollmentService(repository.NewDashboardRepository(client), nil, metrics, nil, service.EnrollmentConfig{})
	cacheSvc := service.NewCacheService(store, metrics, time.Minute, nil, true)
	studentRepo := repository.NewStudentRepository(client)
	courseRepo := repository.NewCourseRepository(client)
	adminSvc := service.NewAdminService(repository.NewAdminRepository(client), studentRepo, courseRepo, service.NewExportService(export.Letterhead{}, nil, nil, nil, nil), cacheSvc, nil, nil, service.AdminConfig{})
	importer := service.NewImporter(courseRepo, studentRepo, cacheSvc, nil, metrics, nil, service.ImporterConfig{})

	engine := New(authSvc, &Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Admin:      handler.NewAdminHandler(adminSvc),
		Review:     handler.NewReviewHandler(service.NewReviewService(repository.NewReviewRepository(client), nil)),
		Import:     handler.NewImportHandler(service.NewImportService(importer, nil, nil, nil), 0),
		Metrics:    handler.NewMetricsHandler(metrics, map[string]handler.Pinger{"redis": store}),
	}, Options{Metrics: metrics, Reporter: errtrack.New("", "test", nil)})
	return engine, reg
}

func perform(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	rec := perform(r, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Username: username, Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func ledgerTotal(t *testing.T, rec *httptest.ResponseRecorder) (int, *appErrors.Error) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var view struct {
		CreditTotal int `json:"credit_total"`
	}
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &view))
	}
	return view.CreditTotal, env.Error
}

func TestRouterEnrollmentFlow(t *testing.T) {
	r, reg := buildRouter(t)

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/api/v1/student/dashboard", "", nil).Code)

	token := login(t, r, "21CS001")

	rec := perform(r, http.MethodGet, "/api/v1/student/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	total, _ := ledgerTotal(t, rec)
	assert.Equal(t, 20, total)

	rec = perform(r, http.MethodPost, "/api/v1/student/courses/2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	total, _ = ledgerTotal(t, rec)
	assert.Equal(t, 24, total)

	rec = perform(r, http.MethodPost, "/api/v1/student/courses/3", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	_, appErr := ledgerTotal(t, rec)
	require.NotNil(t, appErr)
	assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", appErr.Code)

	reg.mu.Lock()
	require.Len(t, reg.posts, 1)
	assert.Equal(t, []int{2}, reg.posts[0].CourseIDs)
	reg.mu.Unlock()

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/api/v1/admin/context", token, nil).Code)

	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/api/v1/student/dashboard", token, nil).Code)
}

func TestRouterReviewRequiresReason(t *testing.T) {
	r, _ := buildRouter(t)
	token := login(t, r, "hod")

	rec := perform(r, http.MethodPut, "/api/v1/admin/reports/7/decision", token, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/api/v1/student/dashboard", token, nil).Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r, _ := buildRouter(t)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/wp-login.php", "", nil).Code)

	rec := perform(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, `path="/health"`)
	assert.NotContains(t, body, "wp-login")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
