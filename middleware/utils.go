package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/logger"
)

func abortWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": gin.H{
			"message": fmt.Sprintf("%s (request id: %s)", message, c.GetString(logger.RequestIdKey)),
			"type":    "litegate_error",
		},
	})
	c.Abort()
	logger.Warn(c.Request.Context(), message)
}
