package controller

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/config"
	relayhelper "github.com/songquanpeng/litegate/relay/helper"
	relaymodel "github.com/songquanpeng/litegate/relay/model"
)

type OpenAIModel struct {
	Id      string `json:"id"`
	Object  string `json:"object"`
	Created int    `json:"created"`
	OwnedBy string `json:"owned_by"`
	Root    string `json:"root"`
}

// availableModels lists the model table first, then the models each
// provider adaptor knows, addressed as "provider/model".
func availableModels() []OpenAIModel {
	var models []OpenAIModel
	seen := map[string]bool{}
	for _, deployment := range config.GetModelDeployments() {
		seen[deployment.Name] = true
		root := deployment.UpstreamModel
		if root == "" {
			root = deployment.Name
		}
		models = append(models, OpenAIModel{
			Id:      deployment.Name,
			Object:  "model",
			Created: 1626777600,
			OwnedBy: deployment.Provider,
			Root:    root,
		})
	}
	builtin := relayhelper.ListModels()
	providers := make([]string, 0, len(builtin))
	for provider := range builtin {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	for _, provider := range providers {
		for _, name := range builtin[provider] {
			id := provider + "/" + name
			if seen[id] {
				continue
			}
			seen[id] = true
			models = append(models, OpenAIModel{
				Id:      id,
				Object:  "model",
				Created: 1626777600,
				OwnedBy: provider,
				Root:    name,
			})
		}
	}
	return models
}

func ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   availableModels(),
	})
}

func RetrieveModel(c *gin.Context) {
	modelId := c.Param("model")
	for _, m := range availableModels() {
		if m.Id == modelId {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": relaymodel.Error{
			Message: fmt.Sprintf("The model '%s' does not exist", modelId),
			Type:    "invalid_request_error",
			Param:   "model",
			Code:    "model_not_found",
		},
	})
}
