package util

import (
	"strings"
	"time"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
)

type RelayMeta struct {
	Mode     int
	Provider string
	APIType  int
	// BaseURL is the provider endpoint, from the model table or the provider default
	BaseURL         string
	APIKey          string
	HeadersOverride map[string]string
	IsStream        bool
	// IncludeUsage is what the caller asked for; upstream always streams usage
	IncludeUsage bool
	// OriginModelName is the model name from the raw user request
	OriginModelName string
	// ActualModelName is the model name sent upstream
	ActualModelName string
	ModelGroup      string
	PromptTokens    int // local estimate, used when the provider reports no usage
	RequestId       string
	StartTime       time.Time
}

// GetRelayMeta resolves which provider serves request.Model. An explicit
// "provider/" prefix wins, then the model table, then the model name itself.
func GetRelayMeta(relayMode int, request *model.GeneralOpenAIRequest) *RelayMeta {
	meta := RelayMeta{
		Mode:            relayMode,
		IsStream:        request.Stream,
		IncludeUsage:    request.IncludeUsage(),
		OriginModelName: request.Model,
		ActualModelName: request.Model,
		ModelGroup:      request.MetadataString("model_group"),
		StartTime:       time.Now(),
	}

	if provider, upstream := common.SplitProviderModel(request.Model); provider != "" {
		meta.Provider = provider
		meta.ActualModelName = upstream
	} else if deployment, ok := config.GetModelDeployment(request.Model); ok {
		meta.Provider = deployment.Provider
		if deployment.UpstreamModel != "" {
			meta.ActualModelName = deployment.UpstreamModel
		}
		meta.BaseURL = deployment.BaseURL
		meta.APIKey = deployment.APIKey()
		meta.HeadersOverride = deployment.Headers
		if meta.ModelGroup == "" {
			meta.ModelGroup = deployment.ModelGroup
		}
	} else {
		meta.Provider = GuessProvider(request.Model)
	}

	if meta.BaseURL == "" {
		meta.BaseURL = DefaultBaseURL(meta.Provider)
	}
	if meta.APIKey == "" {
		meta.APIKey = DefaultAPIKey(meta.Provider)
	}
	meta.BaseURL = strings.TrimSuffix(meta.BaseURL, "/")
	meta.APIType = constant.Provider2APIType(meta.Provider)
	return &meta
}

func GuessProvider(modelName string) string {
	name := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(name, "anthropic.") || strings.Contains(name, ".anthropic."):
		return common.ProviderBedrock
	case strings.HasPrefix(name, "claude"):
		return common.ProviderAnthropic
	case strings.HasPrefix(name, "deepseek"):
		return common.ProviderDeepseek
	}
	return common.ProviderOpenAI
}

func DefaultBaseURL(provider string) string {
	switch provider {
	case common.ProviderAnthropic:
		return config.AnthropicBaseURL
	case common.ProviderDeepseek:
		return config.DeepseekBaseURL
	case common.ProviderBedrock:
		return config.BedrockEndpoint
	}
	return config.OpenAIBaseURL
}

func DefaultAPIKey(provider string) string {
	switch provider {
	case common.ProviderAnthropic:
		return config.AnthropicAPIKey
	case common.ProviderDeepseek:
		return config.DeepseekAPIKey
	case common.ProviderBedrock:
		if config.BedrockAccessKey == "" {
			return ""
		}
		return config.BedrockAccessKey + "|" + config.BedrockSecretKey + "|" + config.BedrockRegion
	}
	return config.OpenAIAPIKey
}
