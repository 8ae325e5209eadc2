package constant

import "strings"

const (
	RelayModeUnknown = iota
	RelayModeChatCompletions
	RelayModeCompletions
)

// Call types name the operation a request performs. The response cache is
// enabled per call type.
const (
	CallTypeCompletion      = "completion"
	CallTypeTextCompletion  = "text_completion"
	CallTypeAsyncCompletion = "acompletion"
)

var DefaultCacheCallTypes = []string{
	CallTypeCompletion,
	CallTypeAsyncCompletion,
	CallTypeTextCompletion,
}

func Path2RelayMode(path string) int {
	relayMode := RelayModeUnknown
	if strings.HasPrefix(path, "/v1/chat/completions") {
		relayMode = RelayModeChatCompletions
	} else if strings.HasPrefix(path, "/v1/completions") {
		relayMode = RelayModeCompletions
	}
	return relayMode
}

func RelayMode2CallType(relayMode int) string {
	if relayMode == RelayModeCompletions {
		return CallTypeTextCompletion
	}
	return CallTypeCompletion
}
