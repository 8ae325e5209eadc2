package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestConvertRequest(t *testing.T) {
	var req model.GeneralOpenAIRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"model": "anthropic/claude-3-5-sonnet-20241022",
		"stop": "END",
		"user": "u1",
		"temperature": 0,
		"messages": [
			{"role": "system", "content": [{"type": "text", "text": "You are an AI assistant tasked with analyzing legal documents."},
			                               {"type": "text", "text": "Here is the full text of a complex legal agreement", "cache_control": {"type": "ephemeral"}}]},
			{"role": "user", "content": "what are the key terms?"},
			{"role": "assistant", "content": "", "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"terms\"}"}}]},
			{"role": "tool", "tool_call_id": "call_1", "content": "term A"},
			{"role": "user", "content": "thanks"}
		],
		"tools": [{"type": "function", "function": {"name": "lookup", "parameters": {"type": "object", "properties": {"q": {"type": "string"}}, "required": ["q"]}}}],
		"tool_choice": "required"
	}`), &req))

	out := ConvertRequest(req, &util.RelayMeta{ActualModelName: "claude-3-5-sonnet-20241022"})
	assert.Equal(t, "claude-3-5-sonnet-20241022", out.Model)
	assert.Equal(t, defaultMaxTokens, out.MaxTokens)
	assert.Equal(t, []string{"END"}, out.StopSequences)
	require.NotNil(t, out.Temperature)
	assert.Equal(t, 0.0, *out.Temperature)
	assert.Equal(t, "u1", out.Metadata.UserId)
	assert.Equal(t, "any", out.ToolChoice.Type)
	assert.Equal(t, []string{"q"}, out.Tools[0].InputSchema.Required)

	require.Len(t, out.System, 2)
	assert.Nil(t, out.System[0].CacheControl)
	require.NotNil(t, out.System[1].CacheControl)
	assert.Equal(t, "ephemeral", out.System[1].CacheControl.Type)

	// user, assistant(tool_use), user(tool_result + thanks)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "tool_use", out.Messages[1].Content[len(out.Messages[1].Content)-1].Type)
	assert.Equal(t, "user", out.Messages[2].Role)
	assert.Equal(t, "tool_result", out.Messages[2].Content[0].Type)
	assert.Equal(t, "call_1", out.Messages[2].Content[0].ToolUseID)
	assert.Equal(t, "thanks", out.Messages[2].Content[1].Text)
}

func TestConvertRequestThinking(t *testing.T) {
	temp := 0.3
	out := ConvertRequest(model.GeneralOpenAIRequest{
		Model:           "claude-sonnet-4-20250514-thinking",
		Temperature:     &temp,
		ReasoningEffort: "high",
		Messages:        []model.Message{{Role: "user", Content: "hi"}},
	}, nil)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Model)
	require.NotNil(t, out.Thinking)
	maxTokens := float64(defaultThinkingMaxTokens)
	assert.Equal(t, int(maxTokens*0.8), out.Thinking.BudgetTokens)
	assert.Nil(t, out.Temperature)
}

func TestConvertRequestPrompt(t *testing.T) {
	out := ConvertRequest(model.GeneralOpenAIRequest{Model: "claude-3-haiku-20240307", Prompt: "Say hi"}, nil)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "Say hi", out.Messages[0].Content[0].Text)
}

func TestHandlerUsage(t *testing.T) {
	body := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022",
		"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"Key terms are..."},{"type":"tool_use","id":"tu_1","name":"lookup","input":{"q":"x"}}],
		"stop_reason":"tool_use",
		"usage":{"input_tokens":25,"output_tokens":300,"cache_creation_input_tokens":1800,"cache_read_input_tokens":0,
		         "cache_creation":{"ephemeral_5m_input_tokens":1800}}}`
	out, errWithCode := Handler(newResponse(200, body), &util.RelayMeta{Mode: constant.RelayModeChatCompletions})
	require.Nil(t, errWithCode)

	u := out.Usage
	assert.Equal(t, 25, u.PromptTokens)
	assert.Equal(t, 300, u.CompletionTokens)
	assert.Equal(t, 325, u.TotalTokens)
	assert.Equal(t, 1800, u.CacheCreationInputTokens)
	assert.Equal(t, 0, u.CacheReadInputTokens)
	assert.Equal(t, 1800, u.CacheCreation.Ephemeral5mInputTokens)

	msg := out.Choices[0].Message
	assert.Equal(t, "Key terms are...", msg.Content)
	assert.Equal(t, "hmm", msg.ReasoningContent)
	assert.Equal(t, "tool_calls", out.Choices[0].FinishReason)
	assert.Equal(t, `{"q":"x"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestHandlerTextCompletion(t *testing.T) {
	body := `{"id":"msg_2","type":"message","content":[{"type":"text","text":"hi"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":1}}`
	out, errWithCode := Handler(newResponse(200, body), &util.RelayMeta{Mode: constant.RelayModeCompletions, ActualModelName: "claude-3-haiku-20240307"})
	require.Nil(t, errWithCode)
	assert.Equal(t, model.ObjectTextCompletion, out.Object)
	assert.Equal(t, "hi", *out.Choices[0].Text)
	assert.Equal(t, "stop", out.Choices[0].FinishReason)
	assert.Equal(t, "claude-3-haiku-20240307", out.Model)
}

func TestStreamHandler(t *testing.T) {
	events := []string{
		`{"type":"message_start","message":{"id":"msg_s","model":"claude-3-5-sonnet-20241022","usage":{"input_tokens":25,"output_tokens":1,"cache_read_input_tokens":1800}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"ping"}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"tu_1","name":"lookup"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":57}}`,
		`{"type":"message_stop"}`,
	}
	var body strings.Builder
	for _, e := range events {
		fmt.Fprintf(&body, "event: x\ndata: %s\n\n", e)
	}

	var chunks []*model.ChatCompletionsStreamResponse
	usage, errWithCode := StreamHandler(newResponse(200, body.String()), &util.RelayMeta{Mode: constant.RelayModeChatCompletions},
		func(chunk *model.ChatCompletionsStreamResponse) error {
			chunks = append(chunks, chunk)
			return nil
		})
	require.Nil(t, errWithCode)
	require.Len(t, chunks, 4)
	assert.Equal(t, "msg_s", chunks[0].Id)
	assert.Equal(t, "Hello", chunks[0].DeltaText())
	assert.Equal(t, "tu_1", chunks[1].Choices[0].Delta.ToolCalls[0].Id)
	assert.Equal(t, 0, *chunks[2].Choices[0].Delta.ToolCalls[0].Index)
	require.NotNil(t, chunks[3].Choices[0].FinishReason)
	assert.Equal(t, "stop", *chunks[3].Choices[0].FinishReason)

	assert.Equal(t, 25, usage.PromptTokens)
	assert.Equal(t, 57, usage.CompletionTokens)
	assert.Equal(t, 82, usage.TotalTokens)
	assert.Equal(t, 1800, usage.CacheReadInputTokens)
}

func TestStreamHandlerErrorEvent(t *testing.T) {
	body := "data: {\"type\":\"message_start\",\"message\":{\"id\":\"m\",\"usage\":{\"input_tokens\":5}}}\n\n" +
		"data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n"
	usage, errWithCode := StreamHandler(newResponse(200, body), &util.RelayMeta{}, func(*model.ChatCompletionsStreamResponse) error { return nil })
	require.NotNil(t, errWithCode)
	assert.Equal(t, "overloaded_error", errWithCode.Type)
	assert.Equal(t, 5, usage.PromptTokens)
}

func TestHandleErrorResponse(t *testing.T) {
	a := &Adaptor{}
	e := a.HandleErrorResponse(newResponse(400, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`))
	require.NotNil(t, e)
	assert.Equal(t, 400, e.StatusCode)
	assert.Equal(t, "max_tokens: too large", e.Message)

	resp := newResponse(502, `<html>bad gateway</html>`)
	assert.Nil(t, a.HandleErrorResponse(resp))
	rest, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<html>bad gateway</html>", string(rest))
}
