package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedTypes := make(map[session.UserType]struct{}, len(allowed))
	for _, a := range allowed {
		allowedTypes[session.UserType(a)] = struct{}{}
	}
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			response.Error(c, appErrors.ErrAuth)
			c.Abort()
			return
		}
		if _, ok := allowedTypes[sess.UserType]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of registrar account kinds.
func RequireRoles(roles ...models.UserType) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
