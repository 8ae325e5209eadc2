package common

import "time"

var Version = "v0.0.0"
var StartTime = time.Now().Unix() // unit: second

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderDeepseek  = "deepseek"
	ProviderBedrock   = "bedrock"
)

// Context keys shared between middleware, controllers and the relay.
const (
	CtxKeyRequestStartTime = "request_start_time"
	CtxKeyFirstWordLatency = "first_word_latency"
	CtxKeyAccessKey        = "access_key"
)

const CacheHitHeader = "X-Litegate-Cache-Hit"

// ResponseIDHeader carries the id of the previous response in a
// conversation, so prompt cache tracking can follow it.
const ResponseIDHeader = "X-Response-ID"
