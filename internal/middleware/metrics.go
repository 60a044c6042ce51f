package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tour-booking-api/internal/metrics"
)

// MetricsMiddleware records every request by route template, so
// /tours/:id is one series no matter how many ids are requested.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
