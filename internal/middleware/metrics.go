package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/service"
)

// Metrics records request count and latency per route. Uses the route
// template rather than the raw path so ids do not explode cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched routes (404s) collapse into one label.
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
