package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	relaymodel "github.com/songquanpeng/litegate/relay/model"
)

const ResponseIDHeader = common.ResponseIDHeader

func getTextRequest(c *gin.Context) (*relaymodel.GeneralOpenAIRequest, error) {
	textRequest := &relaymodel.GeneralOpenAIRequest{}
	if err := common.UnmarshalBodyReusable(c, textRequest); err != nil {
		return nil, err
	}
	if previous := c.GetHeader(ResponseIDHeader); previous != "" && textRequest.MetadataString("previous_response_id") == "" {
		if textRequest.Metadata == nil {
			textRequest.Metadata = map[string]any{}
		}
		textRequest.Metadata["previous_response_id"] = previous
	}
	return textRequest, nil
}

// asRelayError unwraps the error returned by the completion client.
func asRelayError(err error) *relaymodel.ErrorWithStatusCode {
	var relayErr *relaymodel.RelayError
	if errors.As(err, &relayErr) {
		return &relayErr.ErrorWithStatusCode
	}
	return openai.ErrorWrapper(err, "completion_failed", http.StatusInternalServerError)
}
