package router

import (
	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/controller"
	"github.com/songquanpeng/litegate/middleware"
)

func SetRelayRouter(router *gin.Engine) {
	// https://platform.openai.com/docs/api-reference/introduction
	modelsRouter := router.Group("/v1/models")
	modelsRouter.Use(middleware.KeyAuth())
	{
		modelsRouter.GET("", controller.ListModels)
		modelsRouter.GET("/:model", controller.RetrieveModel)
	}
	relayV1Router := router.Group("/v1")
	relayV1Router.Use(middleware.RelayPanicRecover(), middleware.KeyAuth())
	{
		relayV1Router.POST("/chat/completions", controller.Relay)
		relayV1Router.POST("/completions", controller.Relay)
		relayV1Router.POST("/embeddings", controller.RelayNotImplemented)
		relayV1Router.POST("/responses", controller.RelayNotImplemented)
	}
}
