package cors

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New returns the CORS middleware; an empty origin list allows every origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	cfg.MaxAge = 10 * time.Minute
	return cors.New(cfg)
}
