package anthropic

import "github.com/songquanpeng/litegate/relay/model"

// https://docs.anthropic.com/en/api/messages

type Metadata struct {
	UserId string `json:"user_id,omitempty"`
}

// CacheControlEphemeral marks a prompt-cache breakpoint.
type CacheControlEphemeral struct {
	Type string `json:"type"`          // "ephemeral"
	TTL  string `json:"ttl,omitempty"` // "5m" or "1h"
}

type Base64ImageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlockParam is the union of the content block types litegate sends
// and receives.
type ContentBlockParam struct {
	Type string `json:"type"` // "text", "image", "tool_use", "tool_result", "thinking", "redacted_thinking"
	Text string `json:"text,omitempty"`

	Source *Base64ImageSource `json:"source,omitempty"`

	Id    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`

	Content   any    `json:"content,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`

	Signature string `json:"signature,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Data      string `json:"data,omitempty"`

	CacheControl *CacheControlEphemeral `json:"cache_control,omitempty"`
}

type Message struct {
	Role    string              `json:"role"` // "user", "assistant"
	Content []ContentBlockParam `json:"content"`
}

type Tool struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	InputSchema  InputSchema            `json:"input_schema"`
	CacheControl *CacheControlEphemeral `json:"cache_control,omitempty"`
}

type InputSchema struct {
	Type       string   `json:"type"` // "object"
	Properties any      `json:"properties,omitempty"`
	Required   []string `json:"required,omitempty"`
}

type ToolChoice struct {
	Type string `json:"type"`           // "auto", "any", "tool"
	Name string `json:"name,omitempty"` // set when type is "tool"
}

type ThinkingConfig struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens"`
}

type Request struct {
	Model         string              `json:"model"`
	Messages      []Message           `json:"messages"`
	System        []ContentBlockParam `json:"system,omitempty"`
	MaxTokens     int                 `json:"max_tokens"`
	StopSequences []string            `json:"stop_sequences,omitempty"`
	Stream        bool                `json:"stream,omitempty"`
	Temperature   *float64            `json:"temperature,omitempty"`
	TopP          *float64            `json:"top_p,omitempty"`
	TopK          int                 `json:"top_k,omitempty"`
	Tools         []Tool              `json:"tools,omitempty"`
	ToolChoice    *ToolChoice         `json:"tool_choice,omitempty"`
	Metadata      *Metadata           `json:"metadata,omitempty"`
	Thinking      *ThinkingConfig     `json:"thinking,omitempty"`
}

type CacheCreation struct {
	Ephemeral5mInputTokens int `json:"ephemeral_5m_input_tokens,omitempty"`
	Ephemeral1hInputTokens int `json:"ephemeral_1h_input_tokens,omitempty"`
}

type Usage struct {
	InputTokens              int            `json:"input_tokens"`
	OutputTokens             int            `json:"output_tokens"`
	CacheCreationInputTokens int            `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int            `json:"cache_read_input_tokens,omitempty"`
	CacheCreation            *CacheCreation `json:"cache_creation,omitempty"`
}

// ToOpenAI maps Anthropic usage onto the common usage object. input_tokens
// excludes cached tokens and is reported as prompt_tokens unchanged.
func (u *Usage) ToOpenAI() *model.Usage {
	if u == nil {
		return nil
	}
	usage := &model.Usage{
		PromptTokens:             u.InputTokens,
		CompletionTokens:         u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
	if u.CacheCreation != nil {
		usage.CacheCreation = &model.CacheCreationDetails{
			Ephemeral5mInputTokens: u.CacheCreation.Ephemeral5mInputTokens,
			Ephemeral1hInputTokens: u.CacheCreation.Ephemeral1hInputTokens,
		}
	}
	return usage.Finalize()
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Response struct {
	Id           string              `json:"id"`
	Type         string              `json:"type"` // "message" or "error"
	Role         string              `json:"role"`
	Content      []ContentBlockParam `json:"content"`
	Model        string              `json:"model"`
	StopReason   *string             `json:"stop_reason"`
	StopSequence *string             `json:"stop_sequence,omitempty"`
	Usage        *Usage              `json:"usage"`
	Error        *Error              `json:"error,omitempty"`
}

type Delta struct {
	Type         string  `json:"type,omitempty"` // "text_delta", "input_json_delta", "thinking_delta", "signature_delta"
	Text         string  `json:"text,omitempty"`
	PartialJson  string  `json:"partial_json,omitempty"`
	Thinking     string  `json:"thinking,omitempty"`
	StopReason   *string `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence,omitempty"`
}

// https://docs.anthropic.com/en/docs/build-with-claude/streaming
type StreamResponse struct {
	Type         string             `json:"type"` // "message_start", "content_block_start", "content_block_delta", "content_block_stop", "message_delta", "message_stop", "ping", "error"
	Message      *Response          `json:"message,omitempty"`
	Index        int                `json:"index"`
	ContentBlock *ContentBlockParam `json:"content_block,omitempty"`
	Delta        *Delta             `json:"delta,omitempty"`
	Error        *Error             `json:"error,omitempty"`
	Usage        *Usage             `json:"usage,omitempty"`
}
