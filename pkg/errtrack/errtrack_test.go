package errtrack

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecoversPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporter := New("", "test", nil)
	assert.False(t, reporter.Enabled())

	router := gin.New()
	router.Use(reporter.Middleware())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	reporter.Close()
}
