// Package errtrack forwards server errors and panics to Rollbar when a token is configured.
package errtrack

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/middleware/requestid"
	"github.com/noah-isme/cbcs-registration/pkg/response"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// Reporter reports to Rollbar; a Reporter without a token only logs.
type Reporter struct {
	enabled bool
	logger  *zap.Logger
}

// New configures the global Rollbar client.
func New(token, env string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		rollbar.SetEnabled(false)
		return &Reporter{logger: logger}
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetEnabled(true)
	return &Reporter{enabled: true, logger: logger}
}

// Enabled reports whether events leave the process.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Report sends err with request metadata.
func (r *Reporter) Report(req *http.Request, err error, extras map[string]interface{}) {
	if !r.Enabled() || err == nil {
		return
	}
	if req != nil {
		rollbar.RequestErrorWithExtras(rollbar.ERR, req, err, extras)
		return
	}
	rollbar.ErrorWithExtras(rollbar.ERR, err, extras)
}

// Middleware recovers panics as INTERNAL_ERROR responses and reports every 5xx.
func (r *Reporter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				r.logger.Error("panic recovered", zap.String("path", c.Request.URL.Path), zap.Any("panic", rec), zap.Stack("stack"))
				if r.Enabled() {
					rollbar.RequestErrorWithExtras(rollbar.CRIT, c.Request, err, r.extras(c))
				}
				response.Error(c, appErrors.ErrInternal)
				c.Abort()
			}
		}()

		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError {
			return
		}
		err := c.Errors.Last()
		if err == nil {
			r.Report(c.Request, fmt.Errorf("%s %s returned %d", c.Request.Method, c.FullPath(), c.Writer.Status()), r.extras(c))
			return
		}
		r.Report(c.Request, err.Err, r.extras(c))
	}
}

// Close flushes queued events.
func (r *Reporter) Close() {
	if r.Enabled() {
		rollbar.Wait()
	}
}

func (r *Reporter) extras(c *gin.Context) map[string]interface{} {
	extras := map[string]interface{}{"status": c.Writer.Status()}
	if id := requestid.Value(c); id != "" {
		extras["request_id"] = id
	}
	if actor := session.FromContext(c.Request.Context()).Actor(); actor != "" {
		extras["actor"] = actor
	}
	return extras
}
