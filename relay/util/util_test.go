package util

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestRelayErrorHandler(t *testing.T) {
	e := RelayErrorHandler(newResponse(400, `{"error":{"message":"bad model","type":"invalid_request_error","code":"model_not_found"}}`))
	assert.Equal(t, 400, e.StatusCode)
	assert.Equal(t, "bad model", e.Message)
	assert.Equal(t, "model_not_found", e.Code)

	e = RelayErrorHandler(newResponse(500, `{"msg":"boom"}`))
	assert.Equal(t, "boom", e.Message)
	assert.Equal(t, "upstream_error", e.Type)

	e = RelayErrorHandler(newResponse(429, `not json`))
	assert.Contains(t, e.Message, "429")
}

func TestGetFullRequestURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", GetFullRequestURL("https://api.openai.com", "/v1/chat/completions"))
	assert.Equal(t, "http://proxy/v1/chat/completions", GetFullRequestURL("http://proxy/v1/", "/v1/chat/completions"))
}

func TestGetRelayMetaResolution(t *testing.T) {
	cfg, err := config.ParseModelConfig([]byte(`
models:
  - name: fast
    provider: deepseek
    upstream_model: deepseek-chat
    base_url: https://ds.example.com/
    model_group: cheap
`))
	require.NoError(t, err)
	config.SetModelConfig(cfg)
	defer config.SetModelConfig(nil)

	meta := GetRelayMeta(constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "anthropic/claude-3-5-sonnet", Stream: true})
	assert.Equal(t, common.ProviderAnthropic, meta.Provider)
	assert.Equal(t, constant.APITypeAnthropic, meta.APIType)
	assert.Equal(t, "claude-3-5-sonnet", meta.ActualModelName)
	assert.True(t, meta.IsStream)
	assert.False(t, meta.IncludeUsage)

	meta = GetRelayMeta(constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "fast"})
	assert.Equal(t, common.ProviderDeepseek, meta.Provider)
	assert.Equal(t, "deepseek-chat", meta.ActualModelName)
	assert.Equal(t, "https://ds.example.com", meta.BaseURL)
	assert.Equal(t, "cheap", meta.ModelGroup)

	meta = GetRelayMeta(constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "claude-3-haiku"})
	assert.Equal(t, common.ProviderAnthropic, meta.Provider)
	meta = GetRelayMeta(constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "us.anthropic.claude-3-7-sonnet-20250219-v1:0"})
	assert.Equal(t, common.ProviderBedrock, meta.Provider)
	assert.Equal(t, constant.APITypeBedrock, meta.APIType)
	meta = GetRelayMeta(constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "gpt-4o"})
	assert.Equal(t, common.ProviderOpenAI, meta.Provider)
	assert.Equal(t, config.OpenAIBaseURL, meta.BaseURL)
}
