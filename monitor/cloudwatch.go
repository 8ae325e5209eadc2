package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/completion"
)

// metricData is what one flush interval collected.
type metricData struct {
	SuccessLatencies []float64 // ms
	FailureLatencies []float64 // ms
	RequestCount     int64
	MaxConcurrent    int64
	ExplicitErrors   int64 // 4xx
	ImplicitErrors   int64 // 5xx
	PolicyErrors     int64 // 401, 403, 429

	Completions              int64
	CompletionFailures       int64
	CacheHits                int64
	PromptTokens             int64
	CompletionTokens         int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchReporter buffers request and usage metrics and publishes them
// to CloudWatch once per flush interval.
type CloudWatchReporter struct {
	client        metricPutter
	namespace     string
	flushInterval time.Duration

	mu         sync.Mutex
	buffer     *metricData
	concurrent int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	globalReporter *CloudWatchReporter
	reporterMutex  sync.RWMutex
)

func newCloudWatchReporter(ctx context.Context, client metricPutter, namespace string, flushInterval time.Duration) *CloudWatchReporter {
	reporterCtx, cancel := context.WithCancel(ctx)
	return &CloudWatchReporter{
		client:        client,
		namespace:     namespace,
		flushInterval: flushInterval,
		buffer:        &metricData{},
		ctx:           reporterCtx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

func StartCloudWatchReporter(ctx context.Context) error {
	if !config.CloudWatchEnabled {
		return nil
	}
	reporterMutex.Lock()
	defer reporterMutex.Unlock()
	if globalReporter != nil {
		return fmt.Errorf("cloudwatch reporter already started")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.CloudWatchRegion))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	interval := time.Duration(config.CloudWatchFlushInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	globalReporter = newCloudWatchReporter(ctx, cloudwatch.NewFromConfig(cfg), config.CloudWatchNamespace, interval)
	go globalReporter.flushLoop()

	logger.SysLogf("CloudWatch reporter started (namespace: %s, region: %s, flush: %s)",
		config.CloudWatchNamespace, config.CloudWatchRegion, interval)
	return nil
}

// StopCloudWatchReporter flushes what is buffered and stops the reporter.
func StopCloudWatchReporter() {
	reporterMutex.Lock()
	reporter := globalReporter
	globalReporter = nil
	reporterMutex.Unlock()
	if reporter == nil {
		return
	}
	reporter.cancel()
	<-reporter.done
	reporter.flush(context.Background())
	logger.SysLog("CloudWatch reporter stopped")
}

func currentReporter() *CloudWatchReporter {
	reporterMutex.RLock()
	defer reporterMutex.RUnlock()
	return globalReporter
}

func recordCloudWatchRequest(latency time.Duration, statusCode int) {
	if r := currentReporter(); r != nil {
		r.recordRequest(latency, statusCode)
	}
}

func incrementCloudWatchConcurrent() {
	if r := currentReporter(); r != nil {
		current := atomic.AddInt64(&r.concurrent, 1)
		r.mu.Lock()
		r.buffer.MaxConcurrent = max(r.buffer.MaxConcurrent, current)
		r.mu.Unlock()
	}
}

func decrementCloudWatchConcurrent() {
	if r := currentReporter(); r != nil {
		atomic.AddInt64(&r.concurrent, -1)
	}
}

func recordCloudWatchCompletion(record *completion.Record) {
	if r := currentReporter(); r != nil {
		r.recordCompletion(record)
	}
}

func (r *CloudWatchReporter) recordRequest(latency time.Duration, statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latencyMs := float64(latency.Milliseconds())
	if statusCode >= 200 && statusCode < 400 {
		r.buffer.SuccessLatencies = append(r.buffer.SuccessLatencies, latencyMs)
	} else {
		r.buffer.FailureLatencies = append(r.buffer.FailureLatencies, latencyMs)
	}
	r.buffer.RequestCount++
	switch classifyError(statusCode) {
	case "explicit_error":
		r.buffer.ExplicitErrors++
	case "implicit_error":
		r.buffer.ImplicitErrors++
	case "policy_error":
		r.buffer.PolicyErrors++
	}
}

func (r *CloudWatchReporter) recordCompletion(record *completion.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer.Completions++
	if record.Failed {
		r.buffer.CompletionFailures++
	}
	if record.CacheHit {
		r.buffer.CacheHits++
		return
	}
	if usage := record.Usage; usage != nil {
		r.buffer.PromptTokens += int64(usage.PromptTokens)
		r.buffer.CompletionTokens += int64(usage.CompletionTokens)
		r.buffer.CacheCreationInputTokens += int64(usage.CacheCreationInputTokens)
		r.buffer.CacheReadInputTokens += int64(usage.CacheReadInputTokens)
	}
}

func classifyError(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return "success"
	case statusCode == 401 || statusCode == 403 || statusCode == 429:
		return "policy_error"
	case statusCode >= 400 && statusCode < 500:
		return "explicit_error"
	case statusCode >= 500:
		return "implicit_error"
	}
	return "unknown"
}

func (r *CloudWatchReporter) flushLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush(r.ctx)
		}
	}
}

func (r *CloudWatchReporter) flush(ctx context.Context) {
	r.mu.Lock()
	data := r.buffer
	r.buffer = &metricData{}
	r.mu.Unlock()

	datums := buildMetricData(data, r.flushInterval, time.Now())
	if len(datums) == 0 {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	timestamp := aws.Time(time.Now())
	datums = append(datums,
		datum("GoroutineCount", float64(runtime.NumGoroutine()), types.StandardUnitCount, timestamp),
		datum("MemoryAllocMB", float64(m.Alloc/1024/1024), types.StandardUnitMegabytes, timestamp),
	)
	r.send(ctx, datums)
}

func datum(name string, value float64, unit types.StandardUnit, timestamp *time.Time) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  timestamp,
	}
}

// buildMetricData turns one interval's buffer into CloudWatch datums.
// Counters that stayed at zero are left out.
func buildMetricData(data *metricData, interval time.Duration, now time.Time) []types.MetricDatum {
	timestamp := aws.Time(now)
	var datums []types.MetricDatum
	count := func(name string, value int64) {
		if value > 0 {
			datums = append(datums, datum(name, float64(value), types.StandardUnitCount, timestamp))
		}
	}

	datums = append(datums, buildLatencyMetrics("SuccessLatency", data.SuccessLatencies, timestamp)...)
	datums = append(datums, buildLatencyMetrics("FailureLatency", data.FailureLatencies, timestamp)...)
	count("RequestCount", data.RequestCount)
	if data.RequestCount > 0 && interval > 0 {
		datums = append(datums, datum("QPS", float64(data.RequestCount)/interval.Seconds(), types.StandardUnitCountSecond, timestamp))
		totalErrors := data.ExplicitErrors + data.ImplicitErrors + data.PolicyErrors
		datums = append(datums, datum("ErrorRate", float64(totalErrors)/float64(data.RequestCount)*100, types.StandardUnitPercent, timestamp))
	}
	count("MaxConcurrentRequests", data.MaxConcurrent)
	count("ExplicitErrors", data.ExplicitErrors)
	count("ImplicitErrors", data.ImplicitErrors)
	count("PolicyErrors", data.PolicyErrors)

	count("Completions", data.Completions)
	count("CompletionFailures", data.CompletionFailures)
	count("CacheHits", data.CacheHits)
	count("PromptTokens", data.PromptTokens)
	count("CompletionTokens", data.CompletionTokens)
	count("CacheCreationInputTokens", data.CacheCreationInputTokens)
	count("CacheReadInputTokens", data.CacheReadInputTokens)
	return datums
}

func buildLatencyMetrics(metricName string, latencies []float64, timestamp *time.Time) []types.MetricDatum {
	if len(latencies) == 0 {
		return nil
	}
	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return []types.MetricDatum{
		datum(metricName+"Avg", sum/float64(len(sorted)), types.StandardUnitMilliseconds, timestamp),
		datum(metricName+"P50", percentile(sorted, 0.50), types.StandardUnitMilliseconds, timestamp),
		datum(metricName+"P95", percentile(sorted, 0.95), types.StandardUnitMilliseconds, timestamp),
		datum(metricName+"P99", percentile(sorted, 0.99), types.StandardUnitMilliseconds, timestamp),
		datum(metricName+"Max", sorted[len(sorted)-1], types.StandardUnitMilliseconds, timestamp),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// send publishes datums in batches of at most 1000, the PutMetricData limit.
func (r *CloudWatchReporter) send(ctx context.Context, datums []types.MetricDatum) {
	const maxMetricsPerRequest = 1000
	for i := 0; i < len(datums); i += maxMetricsPerRequest {
		end := min(i+maxMetricsPerRequest, len(datums))
		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(r.namespace),
			MetricData: datums[i:end],
		})
		if err != nil {
			logger.SysError("failed to send CloudWatch metrics: " + err.Error())
		}
	}
}
