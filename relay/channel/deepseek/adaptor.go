package deepseek

import (
	"context"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// Adaptor speaks the OpenAI wire format with Deepseek's endpoints and its
// context-cache counters.
type Adaptor struct {
	openai.Adaptor
}

func (a *Adaptor) GetRequestURL(meta *util.RelayMeta) (string, error) {
	if meta.Mode == constant.RelayModeCompletions {
		// FIM completion is only served from the beta endpoint
		return meta.BaseURL + "/beta/completions", nil
	}
	return util.GetFullRequestURL(meta.BaseURL, "/chat/completions"), nil
}

// DoRequest is redefined so the helper sees Deepseek's GetRequestURL.
func (a *Adaptor) DoRequest(ctx context.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	return channel.DoRequestHelper(a, ctx, meta, requestBody)
}

func (a *Adaptor) DoResponse(resp *http.Response, meta *util.RelayMeta) (*model.TextResponse, *model.ErrorWithStatusCode) {
	return openai.Handler(resp, meta, NormalizeUsage)
}

func (a *Adaptor) DoStreamResponse(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode) {
	return openai.StreamHandler(resp, meta, emit, NormalizeUsage)
}

func (a *Adaptor) GetModelList() []string {
	return ModelList
}

func (a *Adaptor) GetChannelName() string {
	return common.ProviderDeepseek
}

// NormalizeUsage maps prompt_cache_hit_tokens onto cache reads. Deepseek's
// prompt_tokens is hit + miss, so it is kept as reported.
func NormalizeUsage(usage *model.Usage) {
	if usage == nil {
		return
	}
	if usage.CacheReadInputTokens == 0 {
		usage.CacheReadInputTokens = usage.PromptCacheHitTokens
	}
	openai.NormalizeUsage(usage)
}
