package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type stubAuthenticator struct {
	sessions map[string]*session.Session
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*session.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAuth, "session expired")
	}
	return sess, nil
}

func newProtectedEngine(roles ...models.UserType) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := stubAuthenticator{sessions: map[string]*session.Session{
		"student-token": {Username: "20CS001", UserType: session.UserType(models.UserTypeStudent)},
		"hod-token":     {Username: "hod", UserType: session.UserType(models.UserTypeHOD)},
	}}
	r := gin.New()
	r.GET("/protected", JWT(auth), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, session.FromContext(c.Request.Context()).Actor())
	})
	return r
}

func TestJWTRejectsMissingAndUnknownTokens(t *testing.T) {
	r := newProtectedEngine(models.UserTypeStudent)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer unknown"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestJWTBindsSessionAndRolesApply(t *testing.T) {
	r := newProtectedEngine(models.UserTypeStudent)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer student-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20CS001", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer hod-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", RBAC(string(models.UserTypeAdmin)), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
