// Package requestid tags every request with an id that follows it into logs, error reports and
// registrar calls.
package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the id on inbound responses and outbound registrar requests.
const Header = "X-Request-ID"

const (
	ginKey    = "request_id"
	maxLength = 128
)

type ctxKey struct{}

// Middleware accepts a caller-supplied id when it is short enough, otherwise mints a uuid.
// The id is stored on the gin context and on the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		c.Set(ginKey, id)
		c.Request = c.Request.WithContext(WithValue(c.Request.Context(), id))
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the id stored by Middleware, or "".
func Value(c *gin.Context) string {
	if id, ok := c.Get(ginKey); ok {
		s, _ := id.(string)
		return s
	}
	return ""
}

// WithValue binds id to ctx.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id bound to ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
