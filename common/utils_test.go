package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitProviderModel(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		model    string
	}{
		{"anthropic/claude-3-5-sonnet-20240620", ProviderAnthropic, "claude-3-5-sonnet-20240620"},
		{"Deepseek/deepseek-chat", ProviderDeepseek, "deepseek-chat"},
		{"openai/gpt-4o", ProviderOpenAI, "gpt-4o"},
		{"bedrock/claude-3-5-haiku-20241022", ProviderBedrock, "claude-3-5-haiku-20241022"},
		{"gpt-4o", "", "gpt-4o"},
		{"meta-llama/Llama-3-8b", "", "meta-llama/Llama-3-8b"},
	}
	for _, tt := range tests {
		provider, model := SplitProviderModel(tt.in)
		assert.Equal(t, tt.provider, provider, tt.in)
		assert.Equal(t, tt.model, model, tt.in)
	}
}
