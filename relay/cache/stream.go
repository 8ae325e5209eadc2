package cache

import (
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
)

const streamChunkSize = 5

// GenerateStreamingContent splits content into chunks of five characters.
func GenerateStreamingContent(content string) []string {
	runes := []rune(content)
	chunks := make([]string, 0, len(runes)/streamChunkSize+1)
	for i := 0; i < len(runes); i += streamChunkSize {
		end := min(i+streamChunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// ReplayStream turns a cached response into the chunks a streaming caller
// would have received. The usage chunk is left to the caller.
func ReplayStream(response *model.TextResponse, relayMode int) []*model.ChatCompletionsStreamResponse {
	object := model.ObjectChatCompletionChunk
	if relayMode == constant.RelayModeCompletions {
		object = model.ObjectTextCompletion
	}
	newChunk := func(choice model.ChatCompletionsStreamResponseChoice) *model.ChatCompletionsStreamResponse {
		return &model.ChatCompletionsStreamResponse{
			Id:                response.Id,
			Object:            object,
			Created:           response.Created,
			Model:             response.Model,
			SystemFingerprint: response.SystemFingerprint,
			Choices:           []model.ChatCompletionsStreamResponseChoice{choice},
		}
	}

	var chunks []*model.ChatCompletionsStreamResponse
	for _, choice := range response.Choices {
		if relayMode == constant.RelayModeCompletions {
			var text string
			if choice.Text != nil {
				text = *choice.Text
			} else if choice.Message != nil {
				text = choice.Message.StringContent()
			}
			for _, piece := range GenerateStreamingContent(text) {
				chunks = append(chunks, newChunk(model.ChatCompletionsStreamResponseChoice{Index: choice.Index, Text: &piece}))
			}
		} else if choice.Message != nil {
			if choice.Message.ReasoningContent != "" {
				chunks = append(chunks, newChunk(model.ChatCompletionsStreamResponseChoice{
					Index: choice.Index,
					Delta: model.Message{Role: "assistant", ReasoningContent: choice.Message.ReasoningContent},
				}))
			}
			for _, piece := range GenerateStreamingContent(choice.Message.StringContent()) {
				chunks = append(chunks, newChunk(model.ChatCompletionsStreamResponseChoice{
					Index: choice.Index,
					Delta: model.Message{Role: "assistant", Content: piece},
				}))
			}
			if len(choice.Message.ToolCalls) > 0 {
				toolCalls := make([]model.Tool, len(choice.Message.ToolCalls))
				for i, call := range choice.Message.ToolCalls {
					index := i
					call.Index = &index
					toolCalls[i] = call
				}
				chunks = append(chunks, newChunk(model.ChatCompletionsStreamResponseChoice{
					Index: choice.Index,
					Delta: model.Message{Role: "assistant", ToolCalls: toolCalls},
				}))
			}
		}
		finishReason := choice.FinishReason
		if finishReason == "" {
			finishReason = "stop"
		}
		chunks = append(chunks, newChunk(model.ChatCompletionsStreamResponseChoice{
			Index:        choice.Index,
			FinishReason: &finishReason,
		}))
	}
	return chunks
}
