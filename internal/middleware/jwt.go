package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/response"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// ContextUserKey is the gin context key storing the authenticated session.
const ContextUserKey = "currentUser"

// Authenticator resolves a gateway token into its server-side session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

// JWT protects routes by requiring a valid gateway token. The resolved session is bound to the
// request context so registrar calls downstream carry its token.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrAuth, "missing or invalid authorization header"))
			c.Abort()
			return
		}

		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, sess)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// CurrentSession returns the session stored by JWT, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	sess, _ := value.(*session.Session)
	return sess
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
