package completion

import (
	"errors"

	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
)

// RelayModeOf tells chat and text completions apart by their payload.
func RelayModeOf(request *model.GeneralOpenAIRequest) int {
	if len(request.Messages) == 0 && request.Prompt != nil {
		return constant.RelayModeCompletions
	}
	return constant.RelayModeChatCompletions
}

func ValidateRequest(request *model.GeneralOpenAIRequest, relayMode int) error {
	if request.Model == "" {
		return errors.New("model is required")
	}
	if request.MaxTokens < 0 || request.MaxTokens > 1<<20 {
		return errors.New("max_tokens is invalid")
	}
	if request.N < 0 {
		return errors.New("n is invalid")
	}
	switch relayMode {
	case constant.RelayModeCompletions:
		if request.Prompt == nil {
			return errors.New("field prompt is required")
		}
	case constant.RelayModeChatCompletions:
		if len(request.Messages) == 0 {
			return errors.New("field messages is required")
		}
	}
	if request.Cache != nil && request.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	return nil
}
