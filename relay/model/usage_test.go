package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeTotalIsPromptPlusCompletion(t *testing.T) {
	u := &Usage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 99}
	u.Finalize()
	assert.Equal(t, 42, u.TotalTokens)
	assert.Nil(t, u.PromptTokensDetails)

	neg := (&Usage{PromptTokens: -3, CompletionTokens: 5}).Finalize()
	assert.Equal(t, 0, neg.PromptTokens)
	assert.Equal(t, 5, neg.TotalTokens)
}

func TestFinalizeMirrorsCacheRead(t *testing.T) {
	u := (&Usage{PromptTokens: 10, CompletionTokens: 1, CacheReadInputTokens: 2048}).Finalize()
	require.NotNil(t, u.PromptTokensDetails)
	assert.Equal(t, 2048, u.PromptTokensDetails.CachedTokens)
	assert.True(t, u.HasPromptCache())
}

func TestMergeKeepsLatestCounters(t *testing.T) {
	// message_start then message_delta, as Anthropic streams them
	u := &Usage{}
	u.Merge(&Usage{PromptTokens: 25, CompletionTokens: 1, CacheCreationInputTokens: 1800})
	u.Merge(&Usage{CompletionTokens: 57})

	assert.Equal(t, 25, u.PromptTokens)
	assert.Equal(t, 57, u.CompletionTokens)
	assert.Equal(t, 82, u.TotalTokens)
	assert.Equal(t, 1800, u.CacheCreationInputTokens)
}

func TestAddSums(t *testing.T) {
	u := &Usage{PromptTokens: 1, CompletionTokens: 2, CacheReadInputTokens: 3}
	u.Add(&Usage{PromptTokens: 10, CompletionTokens: 20, CacheReadInputTokens: 30,
		CompletionTokensDetails: &CompletionTokensDetails{ReasoningTokens: 4}})
	assert.Equal(t, 11, u.PromptTokens)
	assert.Equal(t, 22, u.CompletionTokens)
	assert.Equal(t, 33, u.TotalTokens)
	assert.Equal(t, 33, u.CacheReadInputTokens)
	assert.Equal(t, 4, u.CompletionTokensDetails.ReasoningTokens)
}

func TestUsageJSONHiddenAliases(t *testing.T) {
	u := (&Usage{PromptTokens: 3, CompletionTokens: 4, CacheCreationInputTokens: 100, CacheReadInputTokens: 200}).Finalize()
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 7, raw["total_tokens"])
	assert.EqualValues(t, 100, raw["cache_creation_input_tokens"])
	assert.EqualValues(t, 100, raw["_cache_creation_input_tokens"])
	assert.EqualValues(t, 200, raw["_cache_read_input_tokens"])

	plain, err := json.Marshal(&Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "_cache")
}

func TestUsageJSONAcceptsHiddenSpelling(t *testing.T) {
	var u Usage
	require.NoError(t, json.Unmarshal([]byte(`{"prompt_tokens":5,"completion_tokens":6,"total_tokens":11,"_cache_read_input_tokens":9}`), &u))
	assert.Equal(t, 9, u.CacheReadInputTokens)
	assert.Equal(t, 11, u.TotalTokens)
}

func TestCloneIsDeep(t *testing.T) {
	u := (&Usage{PromptTokens: 1, CacheReadInputTokens: 2}).Finalize()
	c := u.Clone()
	c.PromptTokensDetails.CachedTokens = 99
	assert.Equal(t, 2, u.PromptTokensDetails.CachedTokens)
	assert.Nil(t, (*Usage)(nil).Clone())
}
