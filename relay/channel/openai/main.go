package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// UsageNormalizer maps a provider's usage report onto the common counters.
type UsageNormalizer func(usage *model.Usage)

// NormalizeUsage exposes OpenAI's cached prompt tokens as cache reads.
// prompt_tokens already includes them.
func NormalizeUsage(usage *model.Usage) {
	if usage == nil {
		return
	}
	if usage.CacheReadInputTokens == 0 && usage.PromptTokensDetails != nil {
		usage.CacheReadInputTokens = usage.PromptTokensDetails.CachedTokens
	}
	usage.Finalize()
}

// ConvertRequest prepares the request for an OpenAI compatible upstream.
// litegate's own fields are dropped and usage is always requested when
// streaming, whatever the caller asked for.
func ConvertRequest(request model.GeneralOpenAIRequest, meta *util.RelayMeta) *model.GeneralOpenAIRequest {
	if meta != nil {
		request.Model = meta.ActualModelName
	}
	request.Cache = nil
	request.Metadata = nil
	request.Messages = model.StripPromptCacheControl(request.Messages)
	if request.Stream {
		request.StreamOptions = &model.StreamOptions{IncludeUsage: true}
	} else {
		request.StreamOptions = nil
	}
	return &request
}

func Handler(resp *http.Response, meta *util.RelayMeta, normalize UsageNormalizer) (*model.TextResponse, *model.ErrorWithStatusCode) {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrorWrapper(err, "read_response_body_failed", http.StatusInternalServerError)
	}
	err = resp.Body.Close()
	if err != nil {
		return nil, ErrorWrapper(err, "close_response_body_failed", http.StatusInternalServerError)
	}
	var textResponse model.TextResponse
	err = json.Unmarshal(responseBody, &textResponse)
	if err != nil {
		return nil, ErrorWrapper(err, "unmarshal_response_body_failed", http.StatusInternalServerError)
	}
	if textResponse.Error != nil && textResponse.Error.Type != "" {
		return nil, &model.ErrorWithStatusCode{
			Error:      *textResponse.Error,
			StatusCode: resp.StatusCode,
		}
	}

	if textResponse.Usage == nil || (textResponse.Usage.PromptTokens == 0 && textResponse.Usage.CompletionTokens == 0) {
		completionTokens := CountTokenText(textResponse.Content(), meta.ActualModelName)
		textResponse.Usage = &model.Usage{
			PromptTokens:     meta.PromptTokens,
			CompletionTokens: completionTokens,
		}
	}
	normalize(textResponse.Usage)
	if textResponse.Model == "" {
		textResponse.Model = meta.ActualModelName
	}
	return &textResponse, nil
}

// StreamHandler converts the upstream SSE stream into chunks for emit and
// returns the stream's usage. Usage-only chunks are swallowed here; the
// caller decides whether to send a usage chunk of its own.
func StreamHandler(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter, normalize UsageNormalizer) (*model.Usage, *model.ErrorWithStatusCode) {
	defer util.CloseResponseBodyGracefully(resp)

	responseText := ""
	var usage *model.Usage
	err := channel.ScanSSEData(resp.Body, func(data string) error {
		var streamResponse model.ChatCompletionsStreamResponse
		if err := json.Unmarshal([]byte(data), &streamResponse); err != nil {
			logger.SysError("error unmarshalling stream response: " + err.Error())
			return nil // just ignore the error
		}
		if streamResponse.Usage != nil {
			normalize(streamResponse.Usage)
			if usage == nil {
				usage = &model.Usage{}
			}
			usage.Merge(streamResponse.Usage)
			streamResponse.Usage = nil
		}
		if len(streamResponse.Choices) == 0 {
			return nil
		}
		responseText += streamResponse.DeltaText()
		if streamResponse.Object == "" {
			if meta.Mode == constant.RelayModeCompletions {
				streamResponse.Object = model.ObjectTextCompletion
			} else {
				streamResponse.Object = model.ObjectChatCompletionChunk
			}
		}
		return emit(&streamResponse)
	})
	if err != nil {
		return usage, ErrorWrapper(fmt.Errorf("stream interrupted: %w", err), "stream_read_failed", http.StatusInternalServerError)
	}

	if usage == nil || (usage.PromptTokens == 0 && usage.CompletionTokens == 0) {
		usage = &model.Usage{
			PromptTokens:     meta.PromptTokens,
			CompletionTokens: CountTokenText(responseText, meta.ActualModelName),
		}
	}
	return usage.Finalize(), nil
}
