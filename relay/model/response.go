package model

import "github.com/jinzhu/copier"

type TextResponseChoice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	Text         *string  `json:"text,omitempty"` // text completions
	FinishReason string   `json:"finish_reason"`
}

type TextResponse struct {
	Id                string               `json:"id"`
	Model             string               `json:"model,omitempty"`
	Object            string               `json:"object"`
	Created           int64                `json:"created"`
	Choices           []TextResponseChoice `json:"choices"`
	SystemFingerprint string               `json:"system_fingerprint,omitempty"`
	Usage             *Usage               `json:"usage,omitempty"`
	Error             *Error               `json:"error,omitempty"`
}

// Clone returns a deep copy, for work that outlives the caller's ownership
// of r, such as background cache writes.
func (r *TextResponse) Clone() *TextResponse {
	if r == nil {
		return nil
	}
	clone := &TextResponse{}
	if err := copier.CopyWithOption(clone, r, copier.Option{DeepCopy: true}); err != nil {
		shallow := *r
		shallow.Choices = append([]TextResponseChoice(nil), r.Choices...)
		clone = &shallow
	}
	clone.Usage = r.Usage.Clone()
	return clone
}

// Content concatenates the text of every choice.
func (r *TextResponse) Content() string {
	var text string
	for _, choice := range r.Choices {
		if choice.Message != nil {
			text += choice.Message.StringContent()
		}
		if choice.Text != nil {
			text += *choice.Text
		}
	}
	return text
}

type ChatCompletionsStreamResponseChoice struct {
	Index        int     `json:"index"`
	Delta        Message `json:"delta"`
	Text         *string `json:"text,omitempty"` // text completions
	FinishReason *string `json:"finish_reason,omitempty"`
}

type ChatCompletionsStreamResponse struct {
	Id                string                                `json:"id"`
	Object            string                                `json:"object"`
	Created           int64                                 `json:"created"`
	Model             string                                `json:"model"`
	SystemFingerprint string                                `json:"system_fingerprint,omitempty"`
	Choices           []ChatCompletionsStreamResponseChoice `json:"choices"`
	Usage             *Usage                                `json:"usage,omitempty"`
}

// DeltaText returns the text carried by one chunk, across choices.
func (r *ChatCompletionsStreamResponse) DeltaText() string {
	var text string
	for _, choice := range r.Choices {
		if content, ok := choice.Delta.Content.(string); ok {
			text += content
		}
		if choice.Text != nil {
			text += *choice.Text
		}
	}
	return text
}
