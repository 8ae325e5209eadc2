package aws

import (
	"context"
	"io"
	"net/http"
	"sort"

	"github.com/pkg/errors"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/channel/anthropic"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// Adaptor serves Claude models through Amazon Bedrock. Requests and
// responses use the Anthropic messages format.
type Adaptor struct {
	meta *util.RelayMeta
}

func (a *Adaptor) Init(meta *util.RelayMeta) {
	a.meta = meta
}

func (a *Adaptor) GetRequestURL(meta *util.RelayMeta) (string, error) {
	return "", nil
}

func (a *Adaptor) SetupRequestHeader(req *http.Request, meta *util.RelayMeta) error {
	return nil
}

func (a *Adaptor) ConvertRequest(request *model.GeneralOpenAIRequest) (any, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}
	return convertRequest(anthropic.ConvertRequest(*request, a.meta))
}

func (a *Adaptor) DoRequest(ctx context.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	body, err := io.ReadAll(requestBody)
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	if meta.IsStream {
		return invokeStream(ctx, meta, body)
	}
	return invoke(ctx, meta, body)
}

func (a *Adaptor) DoResponse(resp *http.Response, meta *util.RelayMeta) (*model.TextResponse, *model.ErrorWithStatusCode) {
	return anthropic.Handler(resp, meta)
}

func (a *Adaptor) DoStreamResponse(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode) {
	return anthropic.StreamHandler(resp, meta, emit)
}

func (a *Adaptor) HandleErrorResponse(resp *http.Response) *model.ErrorWithStatusCode {
	return (&anthropic.Adaptor{}).HandleErrorResponse(resp)
}

func (a *Adaptor) GetModelList() []string {
	models := make([]string, 0, len(modelIDMap))
	for name := range modelIDMap {
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}

func (a *Adaptor) GetChannelName() string {
	return common.ProviderBedrock
}
