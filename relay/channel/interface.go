package channel

import (
	"context"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// StreamEmitter receives each converted chunk of a streaming response.
// Returning an error stops the stream.
type StreamEmitter func(chunk *model.ChatCompletionsStreamResponse) error

type Adaptor interface {
	Init(meta *util.RelayMeta)
	GetRequestURL(meta *util.RelayMeta) (string, error)
	SetupRequestHeader(req *http.Request, meta *util.RelayMeta) error
	ConvertRequest(request *model.GeneralOpenAIRequest) (any, error)
	DoRequest(ctx context.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error)
	DoResponse(resp *http.Response, meta *util.RelayMeta) (*model.TextResponse, *model.ErrorWithStatusCode)
	DoStreamResponse(resp *http.Response, meta *util.RelayMeta, emit StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode)
	GetModelList() []string
	GetChannelName() string
}
