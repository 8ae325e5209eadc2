package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/logger"
)

func RelayPanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorf(c.Request.Context(), "panic detected: %v", err)
				logger.Error(c.Request.Context(), "stacktrace from panic: "+string(debug.Stack()))
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"message": fmt.Sprintf("panic detected, error: %v", err),
						"type":    "litegate_panic",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
