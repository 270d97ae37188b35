package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/pkg/middleware/requestid"
)

// Audit writes one structured audit record per state-changing request.
// Failed requests are recorded too, at warn level.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("actor", CurrentSession(c).Actor()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		for _, p := range c.Params {
			fields = append(fields, zap.String("param_"+p.Key, p.Value))
		}

		if status >= 400 {
			logger.Warn("audit", fields...)
			return
		}
		logger.Info("audit", fields...)
	}
}
