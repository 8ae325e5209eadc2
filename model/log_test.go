package model

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/songquanpeng/litegate/relay/completion"
	relaymodel "github.com/songquanpeng/litegate/relay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := openDB("", filepath.Join(t.TempDir(), "litegate.db"))
	require.NoError(t, err)
	DB = db
	t.Cleanup(func() {
		_ = CloseDB()
		DB = nil
	})
}

func TestNewUsageLogCopiesUsage(t *testing.T) {
	log := NewUsageLog(&completion.Record{
		RequestId: "req-1",
		Provider:  "anthropic",
		Model:     "claude",
		Usage: &relaymodel.Usage{
			PromptTokens:             25,
			CompletionTokens:         57,
			TotalTokens:              82,
			CacheCreationInputTokens: 10,
			CacheReadInputTokens:     1800,
		},
		Stream:            true,
		Duration:          1500 * time.Millisecond,
		FirstTokenLatency: 250 * time.Millisecond,
	})
	assert.Equal(t, 82, log.TotalTokens)
	assert.Equal(t, 1800, log.CacheReadInputTokens)
	assert.Equal(t, 10, log.CacheCreationInputTokens)
	assert.Equal(t, 1.5, log.Duration)
	assert.Equal(t, 0.25, log.FirstTokenLatency)
	assert.True(t, log.IsStream)
	assert.NotZero(t, log.CreatedAt)
}

func TestRecordAndQueryUsageLogs(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	RecordUsageLog(ctx, &UsageLog{CreatedAt: 100, ModelName: "gpt-4o", Provider: "openai", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, CacheReadInputTokens: 8})
	RecordUsageLog(ctx, &UsageLog{CreatedAt: 200, ModelName: "gpt-4o", Provider: "openai", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, CacheHit: true})
	RecordUsageLog(ctx, &UsageLog{CreatedAt: 300, ModelName: "claude", Provider: "anthropic", IsStream: true, PromptTokens: 25, CompletionTokens: 57, TotalTokens: 82, CacheCreationInputTokens: 1800})
	RecordUsageLog(ctx, &UsageLog{CreatedAt: 400, ModelName: "claude", Provider: "anthropic", Failed: true, ErrorMessage: "overloaded"})

	logs, total, err := GetUsageLogs(UsageLogFilter{}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, logs, 2)
	assert.EqualValues(t, 400, logs[0].CreatedAt)

	logs, total, err = GetUsageLogs(UsageLogFilter{ModelName: "gpt-4o", StartTimestamp: 150}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, logs[0].CacheHit)

	hit := true
	_, total, err = GetUsageLogs(UsageLogFilter{CacheHit: &hit}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	stream := true
	logs, total, err = GetUsageLogs(UsageLogFilter{IsStream: &stream}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.EqualValues(t, 300, logs[0].CreatedAt)
	stream = false
	_, total, err = GetUsageLogs(UsageLogFilter{IsStream: &stream, ModelName: "claude"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	stats, err := SumUsage(UsageLogFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	claude, gpt := stats[0], stats[1]
	assert.Equal(t, "claude", claude.ModelName)
	assert.EqualValues(t, 2, claude.Requests)
	assert.EqualValues(t, 82, claude.TotalTokens)
	assert.EqualValues(t, 1800, claude.CacheCreationInputTokens)
	assert.EqualValues(t, 1, claude.Failures)
	assert.EqualValues(t, 30, gpt.TotalTokens)
	assert.EqualValues(t, 8, gpt.CacheReadInputTokens)
	assert.EqualValues(t, 1, gpt.CacheHits)
}

func TestDeleteOldUsageLogs(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -40).Unix()
	RecordUsageLog(ctx, &UsageLog{CreatedAt: old, ModelName: "gpt-4o"})
	RecordUsageLog(ctx, &UsageLog{CreatedAt: time.Now().Unix(), ModelName: "gpt-4o"})

	assert.EqualValues(t, 1, cleanUsageLogs(30))
	_, total, err := GetUsageLogs(UsageLogFilter{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestUsageLogRecorder(t *testing.T) {
	setupTestDB(t)
	UsageLogRecorder.Record(context.Background(), &completion.Record{Model: "gpt-4o", Usage: &relaymodel.Usage{TotalTokens: 3}})
	logs, _, err := GetUsageLogs(UsageLogFilter{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 3, logs[0].TotalTokens)
}
