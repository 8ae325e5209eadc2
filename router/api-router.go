package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/controller"
	"github.com/songquanpeng/litegate/middleware"
)

func SetApiRouter(router *gin.Engine) {
	apiRouter := router.Group("/api")
	apiRouter.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		apiRouter.GET("/status", controller.GetStatus)

		adminRoute := apiRouter.Group("/")
		adminRoute.Use(middleware.KeyAuth())
		{
			usageRoute := adminRoute.Group("/usage")
			{
				usageRoute.GET("/logs", controller.GetUsageLogs)
				usageRoute.GET("/stat", controller.GetUsageStat)
			}
			cacheRoute := adminRoute.Group("/cache")
			{
				cacheRoute.GET("/ping", controller.PingCache)
				cacheRoute.POST("/key", controller.GetCacheKey)
				cacheRoute.POST("/delete", controller.DeleteCacheKeys)
				cacheRoute.GET("/prompt", controller.GetPromptCaches)
				cacheRoute.GET("/prompt/:id", controller.GetPromptCache)
			}
		}
	}
}
