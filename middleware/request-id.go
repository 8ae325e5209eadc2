package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/helper"
	"github.com/songquanpeng/litegate/common/logger"
)

// RequestId keeps a caller supplied X-Request-Id, or generates one, and
// puts it on the request context for the logger and the relay.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(logger.RequestIdKey)
		if id == "" {
			id = helper.GenRequestID()
		}
		c.Set(logger.RequestIdKey, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Header(logger.RequestIdKey, id)
		c.Next()
	}
}
