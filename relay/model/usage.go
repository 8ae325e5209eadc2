package model

import (
	"encoding/json"

	"github.com/jinzhu/copier"
)

type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens,omitempty"`
	AudioTokens  int `json:"audio_tokens,omitempty"`
}

// CacheCreationDetails splits cache writes by Anthropic's ephemeral TTL tier.
type CacheCreationDetails struct {
	Ephemeral5mInputTokens int `json:"ephemeral_5m_input_tokens,omitempty"`
	Ephemeral1hInputTokens int `json:"ephemeral_1h_input_tokens,omitempty"`
}

type CompletionTokensDetails struct {
	ReasoningTokens          int `json:"reasoning_tokens,omitempty"`
	AudioTokens              int `json:"audio_tokens,omitempty"`
	AcceptedPredictionTokens int `json:"accepted_prediction_tokens,omitempty"`
	RejectedPredictionTokens int `json:"rejected_prediction_tokens,omitempty"`
}

// Usage is the provider-neutral token report attached to every completion.
//
// PromptTokens and CompletionTokens are what the provider billed as input and
// output; TotalTokens is always their sum. The prompt-cache counters are only
// set by providers that report them (Anthropic, Deepseek, OpenAI's cached
// prompt tokens).
type Usage struct {
	PromptTokens             int                      `json:"prompt_tokens"`
	CompletionTokens         int                      `json:"completion_tokens"`
	TotalTokens              int                      `json:"total_tokens"`
	CacheCreationInputTokens int                      `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int                      `json:"cache_read_input_tokens,omitempty"`
	PromptTokensDetails      *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails  *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
	CacheCreation            *CacheCreationDetails    `json:"cache_creation,omitempty"`

	// Deepseek reports its context cache as hit/miss counts.
	PromptCacheHitTokens  int `json:"prompt_cache_hit_tokens,omitempty"`
	PromptCacheMissTokens int `json:"prompt_cache_miss_tokens,omitempty"`
}

type usageAlias Usage

// usageWire adds the underscore-prefixed aliases some clients read the
// prompt-cache counters from.
type usageWire struct {
	usageAlias
	HiddenCacheCreationInputTokens int `json:"_cache_creation_input_tokens,omitempty"`
	HiddenCacheReadInputTokens     int `json:"_cache_read_input_tokens,omitempty"`
}

func (u Usage) MarshalJSON() ([]byte, error) {
	return json.Marshal(usageWire{
		usageAlias:                     usageAlias(u),
		HiddenCacheCreationInputTokens: u.CacheCreationInputTokens,
		HiddenCacheReadInputTokens:     u.CacheReadInputTokens,
	})
}

func (u *Usage) UnmarshalJSON(data []byte) error {
	var wire usageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*u = Usage(wire.usageAlias)
	if u.CacheCreationInputTokens == 0 {
		u.CacheCreationInputTokens = wire.HiddenCacheCreationInputTokens
	}
	if u.CacheReadInputTokens == 0 {
		u.CacheReadInputTokens = wire.HiddenCacheReadInputTokens
	}
	return nil
}

// Finalize enforces total = prompt + completion and fills the OpenAI style
// cached_tokens detail from the cache read counter.
func (u *Usage) Finalize() *Usage {
	if u == nil {
		return nil
	}
	u.PromptTokens = max(u.PromptTokens, 0)
	u.CompletionTokens = max(u.CompletionTokens, 0)
	u.CacheCreationInputTokens = max(u.CacheCreationInputTokens, 0)
	u.CacheReadInputTokens = max(u.CacheReadInputTokens, 0)
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	if u.CacheReadInputTokens > 0 {
		if u.PromptTokensDetails == nil {
			u.PromptTokensDetails = &PromptTokensDetails{}
		}
		if u.PromptTokensDetails.CachedTokens == 0 {
			u.PromptTokensDetails.CachedTokens = u.CacheReadInputTokens
		}
	}
	return u
}

// Add sums other into u, e.g. across the calls of one session.
func (u *Usage) Add(other *Usage) *Usage {
	if other == nil {
		return u.Finalize()
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
	u.PromptCacheHitTokens += other.PromptCacheHitTokens
	u.PromptCacheMissTokens += other.PromptCacheMissTokens
	if other.PromptTokensDetails != nil {
		if u.PromptTokensDetails == nil {
			u.PromptTokensDetails = &PromptTokensDetails{}
		}
		u.PromptTokensDetails.CachedTokens += other.PromptTokensDetails.CachedTokens
		u.PromptTokensDetails.AudioTokens += other.PromptTokensDetails.AudioTokens
	}
	if other.CompletionTokensDetails != nil {
		if u.CompletionTokensDetails == nil {
			u.CompletionTokensDetails = &CompletionTokensDetails{}
		}
		u.CompletionTokensDetails.ReasoningTokens += other.CompletionTokensDetails.ReasoningTokens
		u.CompletionTokensDetails.AudioTokens += other.CompletionTokensDetails.AudioTokens
		u.CompletionTokensDetails.AcceptedPredictionTokens += other.CompletionTokensDetails.AcceptedPredictionTokens
		u.CompletionTokensDetails.RejectedPredictionTokens += other.CompletionTokensDetails.RejectedPredictionTokens
	}
	if other.CacheCreation != nil {
		if u.CacheCreation == nil {
			u.CacheCreation = &CacheCreationDetails{}
		}
		u.CacheCreation.Ephemeral5mInputTokens += other.CacheCreation.Ephemeral5mInputTokens
		u.CacheCreation.Ephemeral1hInputTokens += other.CacheCreation.Ephemeral1hInputTokens
	}
	return u.Finalize()
}

// Merge folds a usage report from a stream event into u. Providers resend
// running totals, so non-zero counters in other replace the ones in u.
func (u *Usage) Merge(other *Usage) *Usage {
	if other == nil {
		return u.Finalize()
	}
	mergeInt(&u.PromptTokens, other.PromptTokens)
	mergeInt(&u.CompletionTokens, other.CompletionTokens)
	mergeInt(&u.CacheCreationInputTokens, other.CacheCreationInputTokens)
	mergeInt(&u.CacheReadInputTokens, other.CacheReadInputTokens)
	mergeInt(&u.PromptCacheHitTokens, other.PromptCacheHitTokens)
	mergeInt(&u.PromptCacheMissTokens, other.PromptCacheMissTokens)
	if other.PromptTokensDetails != nil {
		d := *other.PromptTokensDetails
		u.PromptTokensDetails = &d
	}
	if other.CompletionTokensDetails != nil {
		d := *other.CompletionTokensDetails
		u.CompletionTokensDetails = &d
	}
	if other.CacheCreation != nil {
		d := *other.CacheCreation
		u.CacheCreation = &d
	}
	return u.Finalize()
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (u *Usage) HasPromptCache() bool {
	return u != nil && (u.CacheCreationInputTokens > 0 || u.CacheReadInputTokens > 0)
}

// Clone returns a deep copy.
func (u *Usage) Clone() *Usage {
	if u == nil {
		return nil
	}
	cloned := &Usage{}
	_ = copier.CopyWithOption(cloned, u, copier.Option{DeepCopy: true})
	return cloned
}
