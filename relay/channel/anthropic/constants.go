package anthropic

import (
	"strings"
)

const thinkingSuffix = "-thinking"

// IsThinkingModel reports whether modelName asks for extended thinking.
func IsThinkingModel(modelName string) bool {
	return strings.HasSuffix(modelName, thinkingSuffix)
}

func GetBaseModelName(modelName string) string {
	return strings.TrimSuffix(modelName, thinkingSuffix)
}

// thinking budget as a share of max_tokens, by reasoning_effort
var thinkingBudgetRatio = map[string]float64{
	"low":    0.2,
	"medium": 0.5,
	"high":   0.8,
}

const (
	defaultMaxTokens         = 4096
	defaultThinkingMaxTokens = 16384
	minThinkingBudget        = 1024
)

var ModelList = []string{
	"claude-3-haiku-20240307",
	"claude-3-opus-20240229",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-7-sonnet-20250219",
	"claude-3-7-sonnet-20250219-thinking",
	"claude-sonnet-4-20250514",
	"claude-sonnet-4-20250514-thinking",
	"claude-opus-4-20250514",
	"claude-opus-4-1-20250805",
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
}
