package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/monitor"
)

// Metrics records latency, status and concurrency of every request.
// Paths are taken from the route template to keep label cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		monitor.IncrementInflight()
		defer monitor.DecrementInflight()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		monitor.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(startTime))
	}
}
