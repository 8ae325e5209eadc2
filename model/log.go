package model

import (
	"context"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/helper"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/completion"
	"gorm.io/gorm"
)

// UsageLog is one completion call with the usage it reported.
type UsageLog struct {
	Id                       int     `json:"id"`
	RequestId                string  `json:"request_id" gorm:"index;default:''"`
	CreatedAt                int64   `json:"created_at" gorm:"bigint;index"`
	Provider                 string  `json:"provider" gorm:"index;default:''"`
	ModelName                string  `json:"model_name" gorm:"index;default:''"`
	ActualModelName          string  `json:"actual_model_name" gorm:"default:''"`
	PromptTokens             int     `json:"prompt_tokens" gorm:"default:0"`
	CompletionTokens         int     `json:"completion_tokens" gorm:"default:0"`
	TotalTokens              int     `json:"total_tokens" gorm:"default:0"`
	CacheCreationInputTokens int     `json:"cache_creation_input_tokens" gorm:"default:0"`
	CacheReadInputTokens     int     `json:"cache_read_input_tokens" gorm:"default:0"`
	IsStream                 bool    `json:"is_stream" gorm:"default:false"`
	CacheHit                 bool    `json:"cache_hit" gorm:"default:false"`
	Failed                   bool    `json:"failed" gorm:"default:false"`
	ErrorMessage             string  `json:"error_message,omitempty" gorm:"type:text"`
	Duration                 float64 `json:"duration" gorm:"default:0"`            // seconds
	FirstTokenLatency        float64 `json:"first_token_latency" gorm:"default:0"` // seconds
}

type UsageLogFilter struct {
	StartTimestamp int64
	EndTimestamp   int64
	ModelName      string
	Provider       string
	IsStream       *bool
	CacheHit       *bool
	Failed         *bool
}

func (f UsageLogFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.ModelName != "" {
		tx = tx.Where("model_name = ?", f.ModelName)
	}
	if f.Provider != "" {
		tx = tx.Where("provider = ?", f.Provider)
	}
	if f.StartTimestamp != 0 {
		tx = tx.Where("created_at >= ?", f.StartTimestamp)
	}
	if f.EndTimestamp != 0 {
		tx = tx.Where("created_at <= ?", f.EndTimestamp)
	}
	if f.IsStream != nil {
		tx = tx.Where("is_stream = ?", *f.IsStream)
	}
	if f.CacheHit != nil {
		tx = tx.Where("cache_hit = ?", *f.CacheHit)
	}
	if f.Failed != nil {
		tx = tx.Where("failed = ?", *f.Failed)
	}
	return tx
}

func NewUsageLog(record *completion.Record) *UsageLog {
	log := &UsageLog{
		RequestId:         record.RequestId,
		CreatedAt:         helper.GetTimestamp(),
		Provider:          record.Provider,
		ModelName:         record.Model,
		ActualModelName:   record.ActualModel,
		IsStream:          record.Stream,
		CacheHit:          record.CacheHit,
		Failed:            record.Failed,
		ErrorMessage:      record.ErrorMessage,
		Duration:          helper.RoundSeconds(record.Duration),
		FirstTokenLatency: helper.RoundSeconds(record.FirstTokenLatency),
	}
	if usage := record.Usage; usage != nil {
		log.PromptTokens = usage.PromptTokens
		log.CompletionTokens = usage.CompletionTokens
		log.TotalTokens = usage.TotalTokens
		log.CacheCreationInputTokens = usage.CacheCreationInputTokens
		log.CacheReadInputTokens = usage.CacheReadInputTokens
	}
	return log
}

func RecordUsageLog(ctx context.Context, log *UsageLog) {
	if !config.UsageLogEnabled || DB == nil {
		return
	}
	if err := DB.WithContext(ctx).Create(log).Error; err != nil {
		logger.Error(ctx, "failed to record usage log: "+err.Error())
	}
}

// UsageLogRecorder stores every completion record as a usage log row.
var UsageLogRecorder = completion.RecorderFunc(func(ctx context.Context, record *completion.Record) {
	RecordUsageLog(ctx, NewUsageLog(record))
})

// GetUsageLogs returns one page of logs, newest first. page starts at 1.
func GetUsageLogs(filter UsageLogFilter, page int, pageSize int) (logs []*UsageLog, total int64, err error) {
	if err = filter.apply(DB.Model(&UsageLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	err = filter.apply(DB.Model(&UsageLog{})).Order("id desc").Limit(pageSize).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

type ModelUsage struct {
	ModelName                string `json:"model_name"`
	Requests                 int64  `json:"requests"`
	PromptTokens             int64  `json:"prompt_tokens"`
	CompletionTokens         int64  `json:"completion_tokens"`
	TotalTokens              int64  `json:"total_tokens"`
	CacheCreationInputTokens int64  `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64  `json:"cache_read_input_tokens"`
	CacheHits                int64  `json:"cache_hits"`
	Failures                 int64  `json:"failures"`
}

// SumUsage aggregates token usage per model.
func SumUsage(filter UsageLogFilter) (stats []*ModelUsage, err error) {
	tx := filter.apply(DB.Model(&UsageLog{})).Select(
		"model_name, count(*) as requests, " +
			"coalesce(sum(prompt_tokens),0) as prompt_tokens, " +
			"coalesce(sum(completion_tokens),0) as completion_tokens, " +
			"coalesce(sum(total_tokens),0) as total_tokens, " +
			"coalesce(sum(cache_creation_input_tokens),0) as cache_creation_input_tokens, " +
			"coalesce(sum(cache_read_input_tokens),0) as cache_read_input_tokens, " +
			"coalesce(sum(case when cache_hit then 1 else 0 end),0) as cache_hits, " +
			"coalesce(sum(case when failed then 1 else 0 end),0) as failures")
	err = tx.Group("model_name").Order("model_name").Scan(&stats).Error
	return stats, err
}

func DeleteOldUsageLogs(targetTimestamp int64) (int64, error) {
	result := DB.Where("created_at < ?", targetTimestamp).Delete(&UsageLog{})
	return result.RowsAffected, result.Error
}
