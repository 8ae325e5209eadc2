package aws

import (
	"github.com/songquanpeng/litegate/relay/channel/anthropic"
)

// Request is the Anthropic messages body as Bedrock takes it: no model or
// stream field, plus anthropic_version.
//
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html
type Request struct {
	// AnthropicVersion should be "bedrock-2023-05-31"
	AnthropicVersion string                        `json:"anthropic_version"`
	AnthropicBeta    []string                      `json:"anthropic_beta,omitempty"`
	Messages         []anthropic.Message           `json:"messages"`
	System           []anthropic.ContentBlockParam `json:"system,omitempty"`
	MaxTokens        int                           `json:"max_tokens,omitempty"`
	Temperature      *float64                      `json:"temperature,omitempty"`
	TopP             *float64                      `json:"top_p,omitempty"`
	TopK             int                           `json:"top_k,omitempty"`
	StopSequences    []string                      `json:"stop_sequences,omitempty"`
	Tools            []anthropic.Tool              `json:"tools,omitempty"`
	ToolChoice       *anthropic.ToolChoice         `json:"tool_choice,omitempty"`
	Thinking         *anthropic.ThinkingConfig     `json:"thinking,omitempty"`
}

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// https://docs.aws.amazon.com/bedrock/latest/userguide/model-ids.html
var modelIDMap = map[string]string{
	"claude-3-haiku-20240307":    "anthropic.claude-3-haiku-20240307-v1:0",
	"claude-3-5-sonnet-20240620": "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"claude-3-5-sonnet-20241022": "anthropic.claude-3-5-sonnet-20241022-v2:0",
	"claude-3-5-haiku-20241022":  "anthropic.claude-3-5-haiku-20241022-v1:0",
	"claude-3-7-sonnet-20250219": "anthropic.claude-3-7-sonnet-20250219-v1:0",
	"claude-sonnet-4-20250514":   "anthropic.claude-sonnet-4-20250514-v1:0",
	"claude-opus-4-20250514":     "anthropic.claude-opus-4-20250514-v1:0",
	"claude-opus-4-1-20250805":   "anthropic.claude-opus-4-1-20250805-v1:0",
	"claude-sonnet-4-5-20250929": "anthropic.claude-sonnet-4-5-20250929-v1:0",
	"claude-haiku-4-5-20251001":  "anthropic.claude-haiku-4-5-20251001-v1:0",
}

// crossRegionMap lists the inference profile prefixes each model can use.
var crossRegionMap = map[string]map[string]bool{
	"anthropic.claude-3-haiku-20240307-v1:0":    {"us": true, "eu": true, "ap": true},
	"anthropic.claude-3-5-sonnet-20240620-v1:0": {"us": true, "eu": true, "ap": true},
	"anthropic.claude-3-5-sonnet-20241022-v2:0": {"us": true, "ap": true},
	"anthropic.claude-3-5-haiku-20241022-v1:0":  {"us": true},
	"anthropic.claude-3-7-sonnet-20250219-v1:0": {"us": true, "eu": true, "ap": true},
	"anthropic.claude-sonnet-4-20250514-v1:0":   {"us": true, "eu": true, "ap": true},
	"anthropic.claude-opus-4-20250514-v1:0":     {"us": true},
	"anthropic.claude-opus-4-1-20250805-v1:0":   {"us": true},
	"anthropic.claude-sonnet-4-5-20250929-v1:0": {"us": true, "eu": true, "ap": true},
	"anthropic.claude-haiku-4-5-20251001-v1:0":  {"us": true, "eu": true, "ap": true},
}

var regionProfilePrefix = map[string]string{
	"us": "us",
	"eu": "eu",
	"ap": "apac",
}
