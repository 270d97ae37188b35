package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/service"
)

// unmatchedRoute labels requests that hit no route so scanners cannot grow the path label set.
const unmatchedRoute = "unmatched"

// Metrics observes every request except the probe and scrape routes listed in skip.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
