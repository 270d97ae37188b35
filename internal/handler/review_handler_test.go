package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

type fakeReviewSrv struct {
	calls  int
	status string
	reason string
	err    error
}

func (f *fakeReviewSrv) Overview(context.Context) (*models.HODOverview, error) {
	return &models.HODOverview{Programs: []models.Program{{ID: 1, Name: "BTech"}}}, nil
}

func (f *fakeReviewSrv) Decide(_ context.Context, id int, status, reason string) (*models.SemesterReport, error) {
	f.calls++
	f.status, f.reason = status, reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.SemesterReport{ID: id, Status: models.ReportStatus(status), Reason: reason, IsSaved: true}, nil
}

func reviewRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/reports/7/decision", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestReviewHandlerDecide(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	r := gin.New()
	r.PUT("/reports/:id/decision", h.Decide)
	r.GET("/overview", h.Overview)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, reviewRequest(`{"status":"approved"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.EqualValues(t, 7, env.Data["report_id"])
	assert.Equal(t, true, env.Data["isSaved"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, reviewRequest(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, srv.calls)

	srv.err = appErrors.Clone(appErrors.ErrConflict, "report already decided")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, reviewRequest(`{"status":"rejected","reason":"missing core"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "missing core", srv.reason)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/overview", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
