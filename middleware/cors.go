package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cors "github.com/rs/cors/wrapper/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/logger"
)

// CORS lets browser clients call the gateway and read the cache and
// response id headers.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders: []string{
			common.CacheHitHeader,
			common.ResponseIDHeader,
			logger.RequestIdKey,
		},
	})
}
