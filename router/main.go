package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/controller"
	"github.com/songquanpeng/litegate/middleware"
	_ "github.com/songquanpeng/litegate/router/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetRouter(router *gin.Engine) {
	router.Use(middleware.CORS())
	if config.MetricsEnabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.SysLog("Prometheus metrics enabled at /metrics")
	}
	SetApiRouter(router)
	SetRelayRouter(router)
	if config.SwaggerEnabled {
		setSwaggerRouter(router)
	}
	router.NoRoute(controller.RelayNotFound)
}

func setSwaggerRouter(router *gin.Engine) {
	var opts []func(*ginSwagger.Config)
	docURL := "doc.json"
	if config.SwaggerJSONURL != "" {
		docURL = config.SwaggerJSONURL
		opts = append(opts, ginSwagger.URL(docURL))
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, opts...))
	logger.SysLogf("Swagger UI enabled at /swagger/index.html (doc: %s)", docURL)
}
