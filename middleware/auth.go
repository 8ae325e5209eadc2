package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
)

// KeyAuth checks the bearer key against ACCESS_KEYS. With no keys
// configured the gateway is open.
func KeyAuth() gin.HandlerFunc {
	return keyAuth(func() []string { return config.AccessKeys })
}

func keyAuth(keys func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := keys()
		if len(allowed) == 0 {
			c.Next()
			return
		}
		key := c.Request.Header.Get("Authorization")
		key = strings.TrimPrefix(key, "Bearer ")
		if key == "" {
			key = c.Request.Header.Get("x-api-key")
		}
		if key == "" {
			abortWithMessage(c, http.StatusUnauthorized, "no access key provided")
			return
		}
		for _, k := range allowed {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				c.Set(common.CtxKeyAccessKey, key)
				c.Next()
				return
			}
		}
		abortWithMessage(c, http.StatusUnauthorized, "invalid access key")
	}
}
