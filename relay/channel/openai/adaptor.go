package openai

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

type Adaptor struct {
	meta *util.RelayMeta
}

func (a *Adaptor) Init(meta *util.RelayMeta) {
	a.meta = meta
}

func (a *Adaptor) GetRequestURL(meta *util.RelayMeta) (string, error) {
	switch meta.Mode {
	case constant.RelayModeCompletions:
		return util.GetFullRequestURL(meta.BaseURL, "/v1/completions"), nil
	default:
		return util.GetFullRequestURL(meta.BaseURL, "/v1/chat/completions"), nil
	}
}

func (a *Adaptor) SetupRequestHeader(req *http.Request, meta *util.RelayMeta) error {
	channel.SetupCommonRequestHeader(req, meta)
	req.Header.Set("Authorization", "Bearer "+meta.APIKey)
	if config.OpenAIOrganization != "" && meta.Provider == common.ProviderOpenAI {
		req.Header.Set("OpenAI-Organization", config.OpenAIOrganization)
	}
	return nil
}

func (a *Adaptor) ConvertRequest(request *model.GeneralOpenAIRequest) (any, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}
	return ConvertRequest(*request, a.meta), nil
}

func (a *Adaptor) DoRequest(ctx context.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	return channel.DoRequestHelper(a, ctx, meta, requestBody)
}

func (a *Adaptor) DoResponse(resp *http.Response, meta *util.RelayMeta) (*model.TextResponse, *model.ErrorWithStatusCode) {
	return Handler(resp, meta, NormalizeUsage)
}

func (a *Adaptor) DoStreamResponse(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode) {
	return StreamHandler(resp, meta, emit, NormalizeUsage)
}

func (a *Adaptor) GetModelList() []string {
	return ModelList
}

func (a *Adaptor) GetChannelName() string {
	return common.ProviderOpenAI
}
