package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/channel"
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
	return util.GetFullRequestURL(meta.BaseURL, "/v1/messages"), nil
}

func (a *Adaptor) SetupRequestHeader(req *http.Request, meta *util.RelayMeta) error {
	channel.SetupCommonRequestHeader(req, meta)
	req.Header.Set("x-api-key", meta.APIKey)
	req.Header.Set("anthropic-version", config.AnthropicVersion)
	if config.AnthropicBeta != "" {
		req.Header.Set("anthropic-beta", config.AnthropicBeta)
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
	return Handler(resp, meta)
}

func (a *Adaptor) DoStreamResponse(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode) {
	return StreamHandler(resp, meta, emit)
}

// HandleErrorResponse parses Anthropic's {"type":"error","error":{...}} body.
// It returns nil for other formats so the generic handler can try.
func (a *Adaptor) HandleErrorResponse(resp *http.Response) *model.ErrorWithStatusCode {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.ErrorWithStatusCode{
			Error: model.Error{
				Message: "failed to read error response body",
				Type:    "api_error",
				Code:    "read_error_failed",
			},
			StatusCode: resp.StatusCode,
		}
	}
	var claudeResponse Response
	if unmarshalErr := json.Unmarshal(responseBody, &claudeResponse); unmarshalErr == nil {
		if claudeResponse.Error != nil && claudeResponse.Error.Type != "" {
			return &model.ErrorWithStatusCode{
				Error: model.Error{
					Message: claudeResponse.Error.Message,
					Type:    claudeResponse.Error.Type,
					Code:    claudeResponse.Error.Type,
				},
				StatusCode: resp.StatusCode,
			}
		}
	}
	resp.Body = io.NopCloser(bytes.NewReader(responseBody))
	return nil
}

func (a *Adaptor) GetModelList() []string {
	return ModelList
}

func (a *Adaptor) GetChannelName() string {
	return common.ProviderAnthropic
}
