package cache

import (
	"strings"
	"testing"

	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStreamingContent(t *testing.T) {
	assert.Equal(t, []string{"Hello", ", wor", "ld"}, GenerateStreamingContent("Hello, world"))
	assert.Empty(t, GenerateStreamingContent(""))
	assert.Equal(t, []string{"你好世界，", "再见"}, GenerateStreamingContent("你好世界，再见"))
}

func TestReplayStreamChat(t *testing.T) {
	response := textResponse("The answer is 42.")
	chunks := ReplayStream(response, constant.RelayModeChatCompletions)
	require.Len(t, chunks, 5)

	var text strings.Builder
	for _, chunk := range chunks[:4] {
		assert.Equal(t, model.ObjectChatCompletionChunk, chunk.Object)
		assert.Equal(t, "assistant", chunk.Choices[0].Delta.Role)
		assert.Nil(t, chunk.Usage)
		text.WriteString(chunk.DeltaText())
	}
	assert.Equal(t, "The answer is 42.", text.String())
	last := chunks[4]
	require.NotNil(t, last.Choices[0].FinishReason)
	assert.Equal(t, "stop", *last.Choices[0].FinishReason)
}

func TestReplayStreamToolCalls(t *testing.T) {
	response := textResponse("")
	response.Choices[0].Message.ToolCalls = []model.Tool{{
		Id:       "call_1",
		Type:     "function",
		Function: model.Function{Name: "lookup", Arguments: `{"q":"x"}`},
	}}
	response.Choices[0].FinishReason = "tool_calls"

	chunks := ReplayStream(response, constant.RelayModeChatCompletions)
	require.Len(t, chunks, 2)
	calls := chunks[0].Choices[0].Delta.ToolCalls
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Index)
	assert.Equal(t, 0, *calls[0].Index)
	assert.Equal(t, "tool_calls", *chunks[1].Choices[0].FinishReason)
}

func TestReplayStreamTextCompletion(t *testing.T) {
	text := "abcdefg"
	response := &model.TextResponse{
		Id:      "cmpl-1",
		Object:  model.ObjectTextCompletion,
		Choices: []model.TextResponseChoice{{Text: &text, FinishReason: "length"}},
	}
	chunks := ReplayStream(response, constant.RelayModeCompletions)
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcde", *chunks[0].Choices[0].Text)
	assert.Equal(t, "fg", *chunks[1].Choices[0].Text)
	assert.Equal(t, model.ObjectTextCompletion, chunks[2].Object)
	assert.Equal(t, "length", *chunks[2].Choices[0].FinishReason)
}
