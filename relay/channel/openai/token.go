package openai

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/image"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/model"
)

var (
	tokenEncoderLock    sync.RWMutex
	tokenEncoderMap     = map[string]*tiktoken.Tiktoken{}
	defaultTokenEncoder *tiktoken.Tiktoken
	gpt4oTokenEncoder   *tiktoken.Tiktoken
	initEncodersOnce    sync.Once
)

// InitTokenEncoders loads the BPE ranks used when a provider reports no usage.
func InitTokenEncoders() {
	initEncodersOnce.Do(func() {
		logger.SysLog("initializing token encoders")
		gpt35TokenEncoder, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err != nil {
			logger.FatalLog(fmt.Sprintf("failed to get gpt-3.5-turbo token encoder: %s", err.Error()))
		}
		defaultTokenEncoder = gpt35TokenEncoder
		gpt4oTokenEncoder, err = tiktoken.EncodingForModel("gpt-4o")
		if err != nil {
			logger.FatalLog(fmt.Sprintf("failed to get gpt-4o token encoder: %s", err.Error()))
		}
		logger.SysLog("token encoders initialized")
	})
}

func getTokenEncoder(model string) *tiktoken.Tiktoken {
	InitTokenEncoders()
	tokenEncoderLock.RLock()
	tokenEncoder, ok := tokenEncoderMap[model]
	tokenEncoderLock.RUnlock()
	if ok {
		return tokenEncoder
	}

	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		tokenEncoder = gpt4oTokenEncoder
	default:
		var err error
		tokenEncoder, err = tiktoken.EncodingForModel(model)
		if err != nil {
			// claude and deepseek models land here, cl100k is a fair estimate
			tokenEncoder = defaultTokenEncoder
		}
	}
	tokenEncoderLock.Lock()
	tokenEncoderMap[model] = tokenEncoder
	tokenEncoderLock.Unlock()
	return tokenEncoder
}

func getTokenNum(model string, text string) int {
	if text == "" {
		return 0
	}
	if config.ApproximateTokenEnabled {
		return int(float64(len(text)) * 0.38)
	}
	return len(getTokenEncoder(model).Encode(text, nil, nil))
}

func CountTokenMessages(messages []model.Message, modelName string) int {
	tokensPerMessage := 3
	tokensPerName := 1
	if modelName == "gpt-3.5-turbo-0301" {
		tokensPerMessage = 4
		tokensPerName = -1
	}

	tokenNum := 0
	for _, message := range messages {
		tokenNum += tokensPerMessage
		for _, part := range message.ParseContent() {
			switch part.Type {
			case model.ContentTypeText:
				tokenNum += getTokenNum(modelName, part.Text)
			case model.ContentTypeImageURL:
				imageTokens, err := countImageTokens(part.ImageURL.Url, part.ImageURL.Detail)
				if err != nil {
					logger.SysError("error counting image tokens: " + err.Error())
					continue
				}
				tokenNum += imageTokens
			}
		}
		tokenNum += getTokenNum(modelName, message.Role)
		if message.Name != nil {
			tokenNum += tokensPerName
			tokenNum += getTokenNum(modelName, *message.Name)
		}
	}
	tokenNum += 3 // Every reply is primed with <|start|>assistant<|message|>
	return tokenNum
}

const (
	lowDetailCost         = 85
	highDetailCostPerTile = 170
	additionalCost        = 85
)

// https://platform.openai.com/docs/guides/vision/calculating-costs
func countImageTokens(url string, detail string) (int, error) {
	if detail == "" || detail == "auto" {
		detail = "high"
	}
	switch detail {
	case "low":
		return lowDetailCost, nil
	case "high":
		width, height, err := image.GetImageSize(url)
		if err != nil {
			return 0, err
		}
		if width > 2048 || height > 2048 {
			ratio := float64(2048) / math.Max(float64(width), float64(height))
			width = int(float64(width) * ratio)
			height = int(float64(height) * ratio)
		}
		if width > 768 && height > 768 {
			ratio := float64(768) / math.Min(float64(width), float64(height))
			width = int(float64(width) * ratio)
			height = int(float64(height) * ratio)
		}
		numSquares := int(math.Ceil(float64(width)/512) * math.Ceil(float64(height)/512))
		return numSquares*highDetailCostPerTile + additionalCost, nil
	default:
		return 0, errors.New("invalid detail option")
	}
}

// CountTokenInput counts a text-completion prompt, a string or a list of strings.
func CountTokenInput(input any, model string) int {
	switch v := input.(type) {
	case string:
		return CountTokenText(v, model)
	case []string:
		return CountTokenText(strings.Join(v, ""), model)
	case []any:
		text := ""
		for _, item := range v {
			if s, ok := item.(string); ok {
				text += s
			}
		}
		return CountTokenText(text, model)
	}
	return 0
}

func CountTokenText(text string, model string) int {
	return getTokenNum(model, text)
}

// CountRequestTokens estimates the prompt of request for the given relay mode.
func CountRequestTokens(request *model.GeneralOpenAIRequest, modelName string, completions bool) int {
	if completions {
		return CountTokenInput(request.Prompt, modelName)
	}
	return CountTokenMessages(request.Messages, modelName)
}
