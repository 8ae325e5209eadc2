package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/songquanpeng/litegate/relay/completion"
)

// LLMBuckets spans 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litegate_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litegate_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	InflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "litegate_requests_inflight",
			Help: "Requests being served",
		},
	)

	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litegate_completions_total",
			Help: "Completion calls by outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	CompletionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litegate_completion_latency_seconds",
			Help:    "Completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	FirstTokenLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litegate_first_token_latency_seconds",
			Help:    "Time to the first streamed chunk",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// TokensTotal splits usage into prompt, completion, cache_creation and
	// cache_read.
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litegate_tokens_total",
			Help: "Tokens reported in completion usage",
		},
		[]string{"provider", "model", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InflightRequests,
		CompletionsTotal,
		CompletionLatency,
		FirstTokenLatency,
		TokensTotal,
	)
}

func statusClass(statusCode int) string {
	return fmt.Sprintf("%dxx", statusCode/100)
}

// RecordRequest observes one finished HTTP request.
func RecordRequest(method, path string, statusCode int, latency time.Duration) {
	RequestsTotal.WithLabelValues(method, path, statusClass(statusCode)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(latency.Seconds())
	recordCloudWatchRequest(latency, statusCode)
}

func IncrementInflight() {
	InflightRequests.Inc()
	incrementCloudWatchConcurrent()
}

func DecrementInflight() {
	InflightRequests.Dec()
	decrementCloudWatchConcurrent()
}

// ObserveCompletion feeds a completion record into the metrics.
func ObserveCompletion(_ context.Context, record *completion.Record) {
	outcome := "ok"
	switch {
	case record.Failed:
		outcome = "error"
	case record.CacheHit:
		outcome = "cache_hit"
	}
	CompletionsTotal.WithLabelValues(record.Provider, record.Model, outcome).Inc()
	CompletionLatency.WithLabelValues(record.Provider, record.Model).Observe(record.Duration.Seconds())
	if record.Stream && record.FirstTokenLatency > 0 {
		FirstTokenLatency.WithLabelValues(record.Provider, record.Model).Observe(record.FirstTokenLatency.Seconds())
	}
	if usage := record.Usage; usage != nil && !record.CacheHit {
		TokensTotal.WithLabelValues(record.Provider, record.Model, "prompt").Add(float64(usage.PromptTokens))
		TokensTotal.WithLabelValues(record.Provider, record.Model, "completion").Add(float64(usage.CompletionTokens))
		TokensTotal.WithLabelValues(record.Provider, record.Model, "cache_creation").Add(float64(usage.CacheCreationInputTokens))
		TokensTotal.WithLabelValues(record.Provider, record.Model, "cache_read").Add(float64(usage.CacheReadInputTokens))
	}
	recordCloudWatchCompletion(record)
}

var CompletionRecorder = completion.RecorderFunc(ObserveCompletion)
