package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/cache"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers like an upstream provider and remembers what it got.
type fakeProvider struct {
	server *httptest.Server
	calls  atomic.Int32

	mu       sync.Mutex
	requests []map[string]any
	paths    []string
}

func newFakeProvider(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		p.mu.Lock()
		p.requests = append(p.requests, body)
		p.paths = append(p.paths, r.URL.Path)
		p.mu.Unlock()
		handler(w, body)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) lastRequest() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func useDeployments(t *testing.T, deployments ...config.ModelDeployment) {
	t.Helper()
	config.SetModelConfig(&config.ModelConfig{Models: deployments})
	t.Cleanup(func() { config.SetModelConfig(nil) })
}

func writeSSE(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", e)
	}
}

const openAIChatBody = `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4o-mini",
	"choices":[{"index":0,"message":{"role":"assistant","content":"Hello there"},"finish_reason":"stop"}],
	"usage":{"prompt_tokens":2006,"completion_tokens":300,"total_tokens":2306,"prompt_tokens_details":{"cached_tokens":1920}}}`

func openAIProvider(t *testing.T) *fakeProvider {
	p := newFakeProvider(t, func(w http.ResponseWriter, body map[string]any) {
		if stream, _ := body["stream"].(bool); stream {
			writeSSE(w,
				`{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"}}]}`,
				`{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":" there"},"finish_reason":"stop"}]}`,
				`{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14,"prompt_tokens_details":{"cached_tokens":8}}}`,
				`[DONE]`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAIChatBody)
	})
	useDeployments(t, config.ModelDeployment{Name: "test-gpt", Provider: "openai", UpstreamModel: "gpt-4o-mini", BaseURL: p.server.URL})
	return p
}

func chatRequest(content string) *model.GeneralOpenAIRequest {
	return &model.GeneralOpenAIRequest{
		Model:    "test-gpt",
		Messages: []model.Message{{Role: "user", Content: content}},
	}
}

func newMemoryCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(context.Background(), cache.Config{Type: cache.TypeLocal})
	require.NoError(t, err)
	return c
}

func waitCached(t *testing.T, c *cache.Cache, request *model.GeneralOpenAIRequest) {
	t.Helper()
	callType := constant.RelayMode2CallType(RelayModeOf(request))
	require.Eventually(t, func() bool {
		_, ok := c.Get(context.Background(), request, callType)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompletionUsage(t *testing.T) {
	p := openAIProvider(t)
	client := NewClient()

	result, err := client.Completion(context.Background(), chatRequest("hello"))
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "Hello there", result.Response.Content())

	usage := result.Usage
	assert.Equal(t, 2006, usage.PromptTokens)
	assert.Equal(t, 300, usage.CompletionTokens)
	assert.Equal(t, usage.PromptTokens+usage.CompletionTokens, usage.TotalTokens)
	assert.Equal(t, 1920, usage.CacheReadInputTokens)

	upstream := p.lastRequest()
	assert.Equal(t, "gpt-4o-mini", upstream["model"])
	assert.NotContains(t, upstream, "cache")
	assert.NotContains(t, upstream, "stream_options")
	assert.Equal(t, []string{"/v1/chat/completions"}, p.paths)
}

func TestCompletionServedFromCache(t *testing.T) {
	p := openAIProvider(t)
	c := newMemoryCache(t)
	client := NewClient(WithCache(c))

	request := chatRequest("cache me")
	first, err := client.Completion(context.Background(), request)
	require.NoError(t, err)
	waitCached(t, c, request)

	second, err := client.Completion(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Response.Content(), second.Response.Content())
	assert.Equal(t, first.Usage.TotalTokens, second.Usage.TotalTokens)
	assert.EqualValues(t, 1, p.calls.Load())

	noCache := chatRequest("cache me")
	noCache.Cache = &model.CacheControl{NoCache: true}
	third, err := client.Completion(context.Background(), noCache)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestCompletionResultIsOwnedByCaller(t *testing.T) {
	openAIProvider(t)
	c := newMemoryCache(t)
	client := NewClient(WithCache(c))

	request := chatRequest("mutate me")
	first, err := client.Completion(context.Background(), request)
	require.NoError(t, err)
	original := first.Response.Content()
	first.Response.Choices[0].Message.Content = "rewritten by caller"
	first.Response.Id = "caller-id"
	waitCached(t, c, request)

	cached, ok := c.Get(context.Background(), request, constant.RelayMode2CallType(RelayModeOf(request)))
	require.True(t, ok)
	assert.Equal(t, original, cached.Content())
	assert.NotEqual(t, "caller-id", cached.Id)
}

func TestCompletionUpstreamError(t *testing.T) {
	p := newFakeProvider(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_error","code":"rate_limit"}}`)
	})
	useDeployments(t, config.ModelDeployment{Name: "test-gpt", Provider: "openai", BaseURL: p.server.URL})

	records := make(chan *Record, 1)
	client := NewClient(WithRecorder(RecorderFunc(func(_ context.Context, record *Record) {
		records <- record
	})))
	_, err := client.Completion(context.Background(), chatRequest("hello"))
	require.Error(t, err)

	var relayErr *model.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, http.StatusTooManyRequests, relayErr.StatusCode)
	assert.Equal(t, "slow down", relayErr.Message)

	select {
	case record := <-records:
		assert.True(t, record.Failed)
		assert.Equal(t, "slow down", record.ErrorMessage)
	case <-time.After(2 * time.Second):
		t.Fatal("no usage record")
	}
}

func TestCompletionValidation(t *testing.T) {
	client := NewClient()
	_, err := client.Completion(context.Background(), &model.GeneralOpenAIRequest{Model: "gpt-4o"})
	var relayErr *model.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, http.StatusBadRequest, relayErr.StatusCode)

	_, err = client.Completion(context.Background(), nil)
	assert.Error(t, err)
}

func TestCompletionRecordsUsage(t *testing.T) {
	openAIProvider(t)
	records := make(chan *Record, 1)
	client := NewClient(WithRecorder(RecorderFunc(func(_ context.Context, record *Record) {
		records <- record
	})))
	_, err := client.Completion(context.Background(), chatRequest("hello"))
	require.NoError(t, err)

	select {
	case record := <-records:
		assert.Equal(t, "test-gpt", record.Model)
		assert.Equal(t, "gpt-4o-mini", record.ActualModel)
		assert.Equal(t, 2306, record.Usage.TotalTokens)
		assert.Equal(t, 1920, record.Usage.CacheReadInputTokens)
		assert.False(t, record.Failed)
	case <-time.After(2 * time.Second):
		t.Fatal("no usage record")
	}
}

func TestTextCompletionAnthropic(t *testing.T) {
	p := newFakeProvider(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Paris"}],
			"stop_reason":"end_turn","usage":{"input_tokens":25,"output_tokens":3,"cache_creation_input_tokens":1800,"cache_read_input_tokens":0}}`)
	})
	useDeployments(t, config.ModelDeployment{Name: "claude", Provider: "anthropic", UpstreamModel: "claude-3-5-sonnet-20241022", BaseURL: p.server.URL})

	result, err := NewClient().Completion(context.Background(), &model.GeneralOpenAIRequest{Model: "claude", Prompt: "Capital of France?"})
	require.NoError(t, err)
	assert.Equal(t, model.ObjectTextCompletion, result.Response.Object)
	assert.Equal(t, "Paris", *result.Response.Choices[0].Text)
	assert.Equal(t, 25, result.Usage.PromptTokens)
	assert.Equal(t, 28, result.Usage.TotalTokens)
	assert.Equal(t, 1800, result.Usage.CacheCreationInputTokens)
	assert.Equal(t, []string{"/v1/messages"}, p.paths)
}

func collect(t *testing.T, stream *Stream) []*model.ChatCompletionsStreamResponse {
	t.Helper()
	var chunks []*model.ChatCompletionsStreamResponse
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func streamText(chunks []*model.ChatCompletionsStreamResponse) string {
	var text strings.Builder
	for _, chunk := range chunks {
		text.WriteString(chunk.DeltaText())
	}
	return text.String()
}

func TestStreamWithUsageChunk(t *testing.T) {
	p := openAIProvider(t)
	request := chatRequest("hello")
	request.StreamOptions = &model.StreamOptions{IncludeUsage: true}

	stream, err := NewClient().Stream(context.Background(), request)
	require.NoError(t, err)
	chunks := collect(t, stream)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Hello there", streamText(chunks))

	last := chunks[2]
	assert.Empty(t, last.Choices)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 12, last.Usage.PromptTokens)
	assert.Equal(t, 14, last.Usage.TotalTokens)
	assert.Equal(t, 8, last.Usage.CacheReadInputTokens)
	assert.Equal(t, "chatcmpl-2", last.Id)
	assert.Equal(t, 14, stream.Usage().TotalTokens)

	options, _ := p.lastRequest()["stream_options"].(map[string]any)
	assert.Equal(t, true, options["include_usage"])
}

func TestStreamWithoutUsageChunk(t *testing.T) {
	p := openAIProvider(t)
	stream, err := NewClient().Stream(context.Background(), chatRequest("hello"))
	require.NoError(t, err)
	chunks := collect(t, stream)
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.Nil(t, chunk.Usage)
	}
	// upstream still reports usage, so the aggregate is exact
	assert.Equal(t, 14, stream.Usage().TotalTokens)
	options, _ := p.lastRequest()["stream_options"].(map[string]any)
	assert.Equal(t, true, options["include_usage"])
}

func TestStreamReplaysFromCache(t *testing.T) {
	p := openAIProvider(t)
	c := newMemoryCache(t)
	client := NewClient(WithCache(c))
	request := chatRequest("stream me")
	request.StreamOptions = &model.StreamOptions{IncludeUsage: true}

	stream, err := client.Stream(context.Background(), request)
	require.NoError(t, err)
	first := collect(t, stream)

	cachedRequest := *request
	cachedRequest.Stream = true
	waitCached(t, c, &cachedRequest)

	replay, err := client.Stream(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, replay.CacheHit())
	second := collect(t, replay)

	assert.Equal(t, streamText(first), streamText(second))
	// "Hello there" in five character deltas, a finish chunk and the usage chunk
	require.Len(t, second, 5)
	assert.Equal(t, "Hello", second[0].DeltaText())
	assert.Equal(t, 14, second[4].Usage.TotalTokens)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestStreamAnthropicPromptCache(t *testing.T) {
	events := []string{
		`{"type":"message_start","message":{"id":"msg_s","model":"claude-3-5-sonnet-20241022","usage":{"input_tokens":25,"output_tokens":1,"cache_read_input_tokens":1800}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Key terms"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":57}}`,
		`{"type":"message_stop"}`,
	}
	p := newFakeProvider(t, func(w http.ResponseWriter, _ map[string]any) {
		writeSSE(w, events...)
	})
	useDeployments(t, config.ModelDeployment{Name: "claude", Provider: "anthropic", UpstreamModel: "claude-3-5-sonnet-20241022", BaseURL: p.server.URL})

	request := &model.GeneralOpenAIRequest{
		Model:         "claude",
		Messages:      []model.Message{{Role: "user", Content: "What are the key terms?"}},
		StreamOptions: &model.StreamOptions{IncludeUsage: true},
	}
	stream, err := NewClient().Stream(context.Background(), request)
	require.NoError(t, err)
	chunks := collect(t, stream)
	require.NotEmpty(t, chunks)

	usage := chunks[len(chunks)-1].Usage
	require.NotNil(t, usage)
	assert.Equal(t, 25, usage.PromptTokens)
	assert.Equal(t, 57, usage.CompletionTokens)
	assert.Equal(t, 82, usage.TotalTokens)
	assert.Equal(t, 1800, usage.CacheReadInputTokens)

	data, err := json.Marshal(usage)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_cache_read_input_tokens":1800`)
}

func TestStreamUpstreamErrorBeforeFirstChunk(t *testing.T) {
	p := newFakeProvider(t, func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	useDeployments(t, config.ModelDeployment{Name: "test-gpt", Provider: "openai", BaseURL: p.server.URL})

	_, err := NewClient().Stream(context.Background(), chatRequest("hello"))
	var relayErr *model.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, http.StatusUnauthorized, relayErr.StatusCode)
}

func TestStreamCloseStopsEarly(t *testing.T) {
	openAIProvider(t)
	stream, err := NewClient().Stream(context.Background(), chatRequest("hello"))
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = stream.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestAccumulatorMergesToolCalls(t *testing.T) {
	first, second := 0, 0
	acc := newAccumulator(constant.RelayModeChatCompletions)
	acc.add(&model.ChatCompletionsStreamResponse{Choices: []model.ChatCompletionsStreamResponseChoice{{
		Delta: model.Message{ToolCalls: []model.Tool{{Id: "call_1", Type: "function", Index: &first, Function: model.Function{Name: "lookup", Arguments: `{"q":`}}}},
	}}})
	finish := "tool_calls"
	acc.add(&model.ChatCompletionsStreamResponse{Choices: []model.ChatCompletionsStreamResponseChoice{{
		Delta:        model.Message{ToolCalls: []model.Tool{{Index: &second, Function: model.Function{Arguments: `"x"}`}}}},
		FinishReason: &finish,
	}}})

	response := acc.response(&model.ChatCompletionsStreamResponse{Id: "c"}, &model.Usage{PromptTokens: 1})
	require.Len(t, response.Choices, 1)
	calls := response.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Function.Name)
	assert.Equal(t, `{"q":"x"}`, calls[0].Function.Arguments)
	assert.Equal(t, "tool_calls", response.Choices[0].FinishReason)
}

func TestRelayModeOf(t *testing.T) {
	assert.Equal(t, constant.RelayModeCompletions, RelayModeOf(&model.GeneralOpenAIRequest{Prompt: "x"}))
	assert.Equal(t, constant.RelayModeChatCompletions, RelayModeOf(chatRequest("x")))
}
