package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/dto"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type fakeEnrollmentSrv struct {
	view      *dto.LedgerView
	err       error
	added     int
	removed   int
	submitted []int
}

func (f *fakeEnrollmentSrv) Load(context.Context) (*dto.LedgerView, error) {
	return f.view, f.err
}

func (f *fakeEnrollmentSrv) AddCourse(_ context.Context, id int) (*dto.LedgerView, error) {
	f.added = id
	return f.view, f.err
}

func (f *fakeEnrollmentSrv) RemoveCourse(_ context.Context, id int) (*dto.LedgerView, error) {
	f.removed = id
	return f.view, f.err
}

func (f *fakeEnrollmentSrv) Submit(_ context.Context, ids []int) (*dto.LedgerView, error) {
	f.submitted = ids
	return f.view, f.err
}

func enrollmentRouter(srv *fakeEnrollmentSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(srv)
	r := gin.New()
	r.GET("/student/dashboard", h.Dashboard)
	r.POST("/student/courses/:id", h.AddCourse)
	r.DELETE("/student/courses/:id", h.RemoveCourse)
	r.POST("/student/enrollment/submit", h.Submit)
	return r
}

func TestEnrollmentHandlerDashboard(t *testing.T) {
	r := enrollmentRouter(&fakeEnrollmentSrv{view: &dto.LedgerView{CreditTotal: 20, CreditCeiling: 30}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/student/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	env := decodeEnvelope(t, rec)
	assert.EqualValues(t, 20, env.Data["credit_total"])
}

func TestEnrollmentHandlerAddCourseRejectsBadID(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	r := enrollmentRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/student/courses/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.added)
}

func TestEnrollmentHandlerCreditLimit(t *testing.T) {
	srv := &fakeEnrollmentSrv{err: appErrors.ErrCreditLimit}
	r := enrollmentRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/student/courses/4", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 4, srv.added)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", env.Error.Code)
	assert.Nil(t, env.Data)
}

func TestEnrollmentHandlerRevertedSyncCarriesView(t *testing.T) {
	srv := &fakeEnrollmentSrv{
		view: &dto.LedgerView{CreditTotal: 20, Sync: &dto.SyncStatus{Status: dto.SyncReverted}},
		err:  appErrors.ErrNetwork,
	}
	r := enrollmentRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/student/courses/9", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 9, srv.removed)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "NETWORK_ERROR", env.Error.Code)
	assert.EqualValues(t, 20, env.Data["credit_total"])
	assert.Equal(t, dto.SyncReverted, env.Data["sync"].(map[string]interface{})["status"])
}

func TestEnrollmentHandlerSubmit(t *testing.T) {
	srv := &fakeEnrollmentSrv{view: &dto.LedgerView{}}
	r := enrollmentRouter(srv)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/student/enrollment/submit", bytes.NewBufferString(`{"course_ids":[1,2]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1, 2}, srv.submitted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/student/enrollment/submit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.submitted)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/student/enrollment/submit", bytes.NewBufferString(`{"course_ids":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
