package common

import (
	"fmt"
	"strings"
)

// SplitProviderModel splits "anthropic/claude-3-5-sonnet" into its provider prefix and model.
// Names without a known provider prefix are returned unchanged with an empty provider.
func SplitProviderModel(name string) (provider string, model string) {
	prefix, rest, found := strings.Cut(name, "/")
	if !found {
		return "", name
	}
	switch strings.ToLower(prefix) {
	case ProviderOpenAI, ProviderAnthropic, ProviderDeepseek, ProviderBedrock:
		return strings.ToLower(prefix), rest
	}
	return "", name
}

func LogTokens(prompt, completion, cacheCreation, cacheRead int) string {
	return fmt.Sprintf("prompt=%d completion=%d cache_creation=%d cache_read=%d",
		prompt, completion, cacheCreation, cacheRead)
}
