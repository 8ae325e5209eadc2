package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/songquanpeng/litegate/common/helper"
	"github.com/songquanpeng/litegate/common/image"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

func stopReasonClaude2OpenAI(reason *string) string {
	if reason == nil {
		return ""
	}
	switch *reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "refusal":
		return "content_filter"
	default:
		return *reason
	}
}

func convertCacheControl(cc *model.PromptCacheControl) *CacheControlEphemeral {
	if cc == nil {
		return nil
	}
	return &CacheControlEphemeral{Type: cc.Type, TTL: cc.TTL}
}

func convertTools(tools []model.Tool) []Tool {
	claudeTools := make([]Tool, 0, len(tools))
	for _, tool := range tools {
		params, _ := tool.Function.Parameters.(map[string]any)
		var required []string
		if reqArr, ok := params["required"].([]any); ok {
			for _, r := range reqArr {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		typeStr := "object"
		if t, ok := params["type"].(string); ok {
			typeStr = t
		}
		claudeTools = append(claudeTools, Tool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: InputSchema{
				Type:       typeStr,
				Properties: params["properties"],
				Required:   required,
			},
		})
	}
	return claudeTools
}

// convertToolChoice maps OpenAI's tool_choice: "required" becomes "any",
// "none" leaves it unset, a named function becomes "tool".
func convertToolChoice(toolChoice any) *ToolChoice {
	claudeToolChoice := &ToolChoice{Type: "auto"}
	switch choice := toolChoice.(type) {
	case map[string]any:
		if function, ok := choice["function"].(map[string]any); ok {
			claudeToolChoice.Type = "tool"
			claudeToolChoice.Name, _ = function["name"].(string)
		}
	case string:
		switch choice {
		case "required", "any":
			claudeToolChoice.Type = "any"
		case "none":
			return nil
		}
	}
	return claudeToolChoice
}

func convertContent(message model.Message) []ContentBlockParam {
	var contents []ContentBlockParam
	for _, part := range message.ParseContent() {
		content := ContentBlockParam{CacheControl: convertCacheControl(part.CacheControl)}
		switch part.Type {
		case model.ContentTypeText:
			if part.Text == "" {
				continue // the Messages API rejects empty text blocks
			}
			content.Type = "text"
			content.Text = part.Text
		case model.ContentTypeImageURL:
			mimeType, data, err := image.GetImageFromUrl(part.ImageURL.Url)
			if err != nil {
				logger.SysError(fmt.Sprintf("error getting image from url: %v", err))
				continue
			}
			content.Type = "image"
			content.Source = &Base64ImageSource{
				Type:      "base64",
				MediaType: mimeType,
				Data:      data,
			}
		}
		contents = append(contents, content)
	}
	return contents
}

// ConvertRequest turns an OpenAI style request into a Messages API request.
// System messages are hoisted, tool results become user turns, and
// cache_control markers on content parts are kept.
func ConvertRequest(textRequest model.GeneralOpenAIRequest, meta *util.RelayMeta) *Request {
	modelName := textRequest.Model
	if meta != nil {
		modelName = meta.ActualModelName
	}
	claudeRequest := Request{
		Model:         GetBaseModelName(modelName),
		MaxTokens:     textRequest.MaxTokens,
		Temperature:   textRequest.Temperature,
		TopP:          textRequest.TopP,
		TopK:          textRequest.TopK,
		Stream:        textRequest.Stream,
		StopSequences: textRequest.StopSequences(),
		Tools:         convertTools(textRequest.Tools),
	}
	if textRequest.User != "" {
		claudeRequest.Metadata = &Metadata{UserId: textRequest.User}
	}
	if len(claudeRequest.Tools) > 0 {
		claudeRequest.ToolChoice = convertToolChoice(textRequest.ToolChoice)
	}

	if IsThinkingModel(modelName) || textRequest.ReasoningEffort != "" {
		if claudeRequest.MaxTokens == 0 {
			claudeRequest.MaxTokens = defaultThinkingMaxTokens
		}
		ratio, ok := thinkingBudgetRatio[textRequest.ReasoningEffort]
		if !ok {
			ratio = thinkingBudgetRatio["medium"]
		}
		budget := max(int(float64(claudeRequest.MaxTokens)*ratio), minThinkingBudget)
		claudeRequest.Thinking = &ThinkingConfig{Type: "enabled", BudgetTokens: budget}
		// extended thinking requires the default sampling parameters
		claudeRequest.Temperature = nil
		claudeRequest.TopP = nil
		claudeRequest.TopK = 0
	}
	if claudeRequest.MaxTokens == 0 {
		claudeRequest.MaxTokens = defaultMaxTokens
	}

	messages := textRequest.Messages
	if len(messages) == 0 && textRequest.Prompt != nil {
		prompt := ""
		switch p := textRequest.Prompt.(type) {
		case string:
			prompt = p
		case []any:
			for _, item := range p {
				if s, ok := item.(string); ok {
					prompt += s
				}
			}
		}
		messages = []model.Message{{Role: "user", Content: prompt}}
	}

	for _, message := range messages {
		switch message.Role {
		case "system", "developer":
			claudeRequest.System = append(claudeRequest.System, convertContent(message)...)
			continue
		case "tool":
			claudeRequest.Messages = appendMessage(claudeRequest.Messages, "user", ContentBlockParam{
				Type:      "tool_result",
				ToolUseID: message.ToolCallId,
				Content:   message.StringContent(),
			})
			continue
		}
		contents := convertContent(message)
		for _, toolCall := range message.ToolCalls {
			inputParam := make(map[string]any)
			if args, ok := toolCall.Function.Arguments.(string); ok {
				_ = json.Unmarshal([]byte(args), &inputParam)
			}
			contents = append(contents, ContentBlockParam{
				Type:  "tool_use",
				Id:    toolCall.Id,
				Name:  toolCall.Function.Name,
				Input: inputParam,
			})
		}
		claudeRequest.Messages = appendMessage(claudeRequest.Messages, message.Role, contents...)
	}
	return &claudeRequest
}

// appendMessage merges consecutive turns of the same role, which the
// Messages API rejects.
func appendMessage(messages []Message, role string, contents ...ContentBlockParam) []Message {
	if len(contents) == 0 {
		return messages
	}
	if n := len(messages); n > 0 && messages[n-1].Role == role {
		messages[n-1].Content = append(messages[n-1].Content, contents...)
		return messages
	}
	return append(messages, Message{Role: role, Content: contents})
}

func ResponseClaude2OpenAI(claudeResponse *Response, relayMode int) *model.TextResponse {
	var responseText string
	var reasoningContent string
	tools := make([]model.Tool, 0)

	for _, v := range claudeResponse.Content {
		switch v.Type {
		case "text":
			responseText += v.Text
		case "thinking":
			if reasoningContent != "" {
				reasoningContent += "\n"
			}
			reasoningContent += v.Thinking
		case "tool_use":
			args, _ := json.Marshal(v.Input)
			tools = append(tools, model.Tool{
				Id:   v.Id,
				Type: "function",
				Function: model.Function{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		}
	}

	choice := model.TextResponseChoice{
		Index:        0,
		FinishReason: stopReasonClaude2OpenAI(claudeResponse.StopReason),
	}
	object := model.ObjectChatCompletion
	if relayMode == constant.RelayModeCompletions {
		object = model.ObjectTextCompletion
		choice.Text = &responseText
	} else {
		message := &model.Message{
			Role:             "assistant",
			Content:          responseText,
			ReasoningContent: reasoningContent,
		}
		if len(tools) > 0 {
			message.ToolCalls = tools
		}
		choice.Message = message
	}
	return &model.TextResponse{
		Id:      claudeResponse.Id,
		Model:   claudeResponse.Model,
		Object:  object,
		Created: helper.GetTimestamp(),
		Choices: []model.TextResponseChoice{choice},
		Usage:   claudeResponse.Usage.ToOpenAI(),
	}
}

// streamConverter keeps the state a Messages API stream spreads over events.
type streamConverter struct {
	relayMode  int
	id         string
	model      string
	created    int64
	usage      model.Usage
	toolBlocks map[int]int // content block index -> tool call index
}

func newStreamConverter(relayMode int, modelName string) *streamConverter {
	return &streamConverter{
		relayMode:  relayMode,
		id:         helper.GetResponseID("chatcmpl"),
		model:      modelName,
		created:    helper.GetTimestamp(),
		toolBlocks: make(map[int]int),
	}
}

// convert returns the OpenAI chunk for one event, or nil when the event
// only carries metadata.
func (s *streamConverter) convert(event *StreamResponse) *model.ChatCompletionsStreamResponse {
	var choice model.ChatCompletionsStreamResponseChoice
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			if event.Message.Id != "" {
				s.id = event.Message.Id
			}
			if event.Message.Model != "" {
				s.model = event.Message.Model
			}
			if event.Message.Usage != nil {
				s.usage.Merge(event.Message.Usage.ToOpenAI())
			}
		}
		return nil
	case "content_block_start":
		if event.ContentBlock == nil {
			return nil
		}
		switch event.ContentBlock.Type {
		case "text":
			if event.ContentBlock.Text == "" {
				return nil
			}
			choice.Delta.Content = event.ContentBlock.Text
		case "thinking":
			if event.ContentBlock.Thinking == "" {
				return nil
			}
			choice.Delta.ReasoningContent = event.ContentBlock.Thinking
		case "tool_use":
			toolIndex := len(s.toolBlocks)
			s.toolBlocks[event.Index] = toolIndex
			choice.Delta.ToolCalls = []model.Tool{{
				Id:    event.ContentBlock.Id,
				Type:  "function",
				Index: &toolIndex,
				Function: model.Function{
					Name:      event.ContentBlock.Name,
					Arguments: "",
				},
			}}
		default:
			return nil
		}
	case "content_block_delta":
		if event.Delta == nil {
			return nil
		}
		switch event.Delta.Type {
		case "text_delta":
			choice.Delta.Content = event.Delta.Text
		case "thinking_delta":
			choice.Delta.ReasoningContent = event.Delta.Thinking
		case "input_json_delta":
			toolIndex := s.toolBlocks[event.Index]
			choice.Delta.ToolCalls = []model.Tool{{
				Index:    &toolIndex,
				Function: model.Function{Arguments: event.Delta.PartialJson},
			}}
		default:
			return nil
		}
	case "message_delta":
		if event.Usage != nil {
			s.usage.Merge(event.Usage.ToOpenAI())
		}
		if event.Delta == nil || event.Delta.StopReason == nil {
			return nil
		}
		finishReason := stopReasonClaude2OpenAI(event.Delta.StopReason)
		choice.FinishReason = &finishReason
	default:
		return nil
	}

	response := &model.ChatCompletionsStreamResponse{
		Id:      s.id,
		Object:  model.ObjectChatCompletionChunk,
		Created: s.created,
		Model:   s.model,
	}
	if s.relayMode == constant.RelayModeCompletions {
		response.Object = model.ObjectTextCompletion
		if text, ok := choice.Delta.Content.(string); ok {
			choice.Text = &text
		}
		choice.Delta = model.Message{}
	} else if choice.FinishReason == nil {
		choice.Delta.Role = "assistant"
	}
	response.Choices = []model.ChatCompletionsStreamResponseChoice{choice}
	return response
}

func StreamHandler(resp *http.Response, meta *util.RelayMeta, emit channel.StreamEmitter) (*model.Usage, *model.ErrorWithStatusCode) {
	defer util.CloseResponseBodyGracefully(resp)

	converter := newStreamConverter(meta.Mode, meta.ActualModelName)
	var streamErr *model.ErrorWithStatusCode
	err := channel.ScanSSEData(resp.Body, func(data string) error {
		var claudeResponse StreamResponse
		if err := json.Unmarshal([]byte(data), &claudeResponse); err != nil {
			logger.SysError("error unmarshalling stream response: " + err.Error())
			return nil
		}
		if claudeResponse.Type == "error" && claudeResponse.Error != nil {
			streamErr = &model.ErrorWithStatusCode{
				Error: model.Error{
					Message: claudeResponse.Error.Message,
					Type:    claudeResponse.Error.Type,
					Code:    claudeResponse.Error.Type,
				},
				StatusCode: http.StatusBadGateway,
			}
			return io.EOF
		}
		response := converter.convert(&claudeResponse)
		if response == nil {
			return nil
		}
		return emit(response)
	})
	usage := converter.usage.Finalize()
	if streamErr != nil {
		return usage, streamErr
	}
	if err != nil {
		return usage, openai.ErrorWrapper(fmt.Errorf("stream interrupted: %w", err), "stream_read_failed", http.StatusInternalServerError)
	}
	return usage, nil
}

func Handler(resp *http.Response, meta *util.RelayMeta) (*model.TextResponse, *model.ErrorWithStatusCode) {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, openai.ErrorWrapper(err, "read_response_body_failed", http.StatusInternalServerError)
	}
	err = resp.Body.Close()
	if err != nil {
		return nil, openai.ErrorWrapper(err, "close_response_body_failed", http.StatusInternalServerError)
	}
	var claudeResponse Response
	err = json.Unmarshal(responseBody, &claudeResponse)
	if err != nil {
		return nil, openai.ErrorWrapper(err, "unmarshal_response_body_failed", http.StatusInternalServerError)
	}
	if claudeResponse.Error != nil && claudeResponse.Error.Type != "" {
		return nil, &model.ErrorWithStatusCode{
			Error: model.Error{
				Message: claudeResponse.Error.Message,
				Type:    claudeResponse.Error.Type,
				Param:   "",
				Code:    claudeResponse.Error.Type,
			},
			StatusCode: resp.StatusCode,
		}
	}
	fullTextResponse := ResponseClaude2OpenAI(&claudeResponse, meta.Mode)
	if fullTextResponse.Model == "" {
		fullTextResponse.Model = meta.ActualModelName
	}
	if fullTextResponse.Usage == nil {
		fullTextResponse.Usage = (&model.Usage{
			PromptTokens:     meta.PromptTokens,
			CompletionTokens: openai.CountTokenText(fullTextResponse.Content(), meta.ActualModelName),
		}).Finalize()
	}
	return fullTextResponse, nil
}
