package completion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/helper"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/cache"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// Stream delivers the chunks of one streaming completion. Recv returns
// io.EOF after the last chunk; Usage is valid from then on.
type Stream struct {
	chunks chan *model.ChatCompletionsStreamResponse
	cancel context.CancelFunc
	done   chan struct{}

	cacheHit bool
	provider string

	mu                sync.Mutex
	err               error
	usage             *model.Usage
	firstTokenLatency time.Duration
}

func (s *Stream) Recv() (*model.ChatCompletionsStreamResponse, error) {
	chunk, ok := <-s.chunks
	if ok {
		return chunk, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// Usage returns the aggregated usage, or nil before the stream ended.
func (s *Stream) Usage() *model.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

func (s *Stream) CacheHit() bool {
	return s.cacheHit
}

func (s *Stream) Provider() string {
	return s.provider
}

func (s *Stream) FirstTokenLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstTokenLatency
}

// Close stops the stream and waits for the upstream reader to exit.
func (s *Stream) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Stream) finish(usage *model.Usage, err error) {
	s.mu.Lock()
	s.usage = usage
	s.err = err
	s.mu.Unlock()
	close(s.chunks)
	close(s.done)
}

// send blocks until the reader takes chunk or the stream is cancelled.
func (s *Stream) send(ctx context.Context, chunk *model.ChatCompletionsStreamResponse) error {
	select {
	case s.chunks <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream starts a streaming call. Errors that happen before the first chunk
// (validation, upstream status) are returned here; later ones from Recv.
func (c *Client) Stream(ctx context.Context, request *model.GeneralOpenAIRequest) (*Stream, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}
	startTime := time.Now()
	textRequest := *request
	textRequest.Stream = true

	relayMode := RelayModeOf(&textRequest)
	if err := ValidateRequest(&textRequest, relayMode); err != nil {
		return nil, openai.ErrorWrapper(err, "invalid_text_request", http.StatusBadRequest).AsError()
	}
	meta := c.newMeta(ctx, relayMode, &textRequest, startTime)
	callType := constant.RelayMode2CallType(relayMode)

	streamCtx, cancel := context.WithCancel(ctx)
	stream := &Stream{
		chunks:   make(chan *model.ChatCompletionsStreamResponse),
		cancel:   cancel,
		done:     make(chan struct{}),
		provider: meta.Provider,
	}

	if cached, ok := c.cache.Get(ctx, &textRequest, callType); ok {
		stream.cacheHit = true
		go c.replay(streamCtx, stream, meta, cached)
		return stream, nil
	}

	adaptor, relayErr := c.prepare(meta, &textRequest)
	if relayErr != nil {
		cancel()
		c.record(ctx, c.newRecord(meta, nil, time.Since(startTime), 0, false, relayErr))
		return nil, relayErr.AsError()
	}
	resp, relayErr := doRequest(streamCtx, adaptor, meta, &textRequest)
	if relayErr != nil {
		cancel()
		c.record(ctx, c.newRecord(meta, nil, time.Since(startTime), 0, false, relayErr))
		return nil, relayErr.AsError()
	}

	go func() {
		acc := newAccumulator(relayMode)
		var lastChunk *model.ChatCompletionsStreamResponse
		usage, relayErr := adaptor.DoStreamResponse(resp, meta, func(chunk *model.ChatCompletionsStreamResponse) error {
			if lastChunk == nil {
				stream.mu.Lock()
				stream.firstTokenLatency = time.Since(startTime)
				stream.mu.Unlock()
			}
			lastChunk = chunk
			acc.add(chunk)
			return stream.send(streamCtx, chunk)
		})
		if usage == nil {
			usage = &model.Usage{PromptTokens: meta.PromptTokens}
		}
		usage.Finalize()

		var err error
		if relayErr != nil {
			if streamCtx.Err() != nil {
				err = streamCtx.Err()
			} else {
				err = relayErr.AsError()
			}
		} else if meta.IncludeUsage {
			if sendErr := stream.send(streamCtx, usageChunk(lastChunk, meta, usage)); sendErr != nil {
				err = sendErr
			}
		}

		duration := time.Since(startTime)
		logger.Infof(ctx, "%s via %s streamed in %.3fs, %s", meta.OriginModelName, meta.Provider, helper.RoundSeconds(duration),
			common.LogTokens(usage.PromptTokens, usage.CompletionTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens))
		record := c.newRecord(meta, usage, duration, stream.FirstTokenLatency(), false, relayErr)
		if err == nil && lastChunk != nil {
			c.afterResponse(ctx, meta, &textRequest, callType, acc.response(lastChunk, usage))
		}
		c.record(ctx, record)
		stream.finish(usage, err)
	}()
	return stream, nil
}

func (c *Client) replay(ctx context.Context, stream *Stream, meta *util.RelayMeta, cached *model.TextResponse) {
	usage := cached.Usage.Clone()
	if usage == nil {
		usage = &model.Usage{}
	}
	usage.Finalize()

	var err error
	chunks := cache.ReplayStream(cached, meta.Mode)
	for i, chunk := range chunks {
		if i == 0 {
			stream.mu.Lock()
			stream.firstTokenLatency = time.Since(meta.StartTime)
			stream.mu.Unlock()
		}
		if err = stream.send(ctx, chunk); err != nil {
			break
		}
	}
	if err == nil && meta.IncludeUsage {
		var last *model.ChatCompletionsStreamResponse
		if len(chunks) > 0 {
			last = chunks[len(chunks)-1]
		}
		err = stream.send(ctx, usageChunk(last, meta, usage))
	}
	c.record(ctx, c.newRecord(meta, usage, time.Since(meta.StartTime), stream.FirstTokenLatency(), true, nil))
	stream.finish(usage, err)
}

// usageChunk is the final chunk sent to callers that set
// stream_options.include_usage; it carries no choices.
func usageChunk(last *model.ChatCompletionsStreamResponse, meta *util.RelayMeta, usage *model.Usage) *model.ChatCompletionsStreamResponse {
	chunk := &model.ChatCompletionsStreamResponse{
		Id:      helper.GetResponseID("chatcmpl"),
		Object:  model.ObjectChatCompletionChunk,
		Created: helper.GetTimestamp(),
		Model:   meta.ActualModelName,
		Choices: []model.ChatCompletionsStreamResponseChoice{},
		Usage:   usage,
	}
	if meta.Mode == constant.RelayModeCompletions {
		chunk.Object = model.ObjectTextCompletion
	}
	if last != nil {
		chunk.Id = last.Id
		chunk.Created = last.Created
		chunk.Model = last.Model
		chunk.SystemFingerprint = last.SystemFingerprint
	}
	return chunk
}

// accumulator rebuilds a full response from streamed chunks so a stream can
// be stored in the response cache.
type accumulator struct {
	relayMode int
	choices   map[int]*accumulatedChoice
}

type accumulatedChoice struct {
	content      strings.Builder
	reasoning    strings.Builder
	toolCalls    []model.Tool
	finishReason string
}

func newAccumulator(relayMode int) *accumulator {
	return &accumulator{relayMode: relayMode, choices: make(map[int]*accumulatedChoice)}
}

func (a *accumulator) add(chunk *model.ChatCompletionsStreamResponse) {
	for _, choice := range chunk.Choices {
		acc, ok := a.choices[choice.Index]
		if !ok {
			acc = &accumulatedChoice{}
			a.choices[choice.Index] = acc
		}
		if content, ok := choice.Delta.Content.(string); ok {
			acc.content.WriteString(content)
		}
		if choice.Text != nil {
			acc.content.WriteString(*choice.Text)
		}
		acc.reasoning.WriteString(choice.Delta.ReasoningContent)
		for _, call := range choice.Delta.ToolCalls {
			acc.addToolCall(call)
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			acc.finishReason = *choice.FinishReason
		}
	}
}

func (a *accumulatedChoice) addToolCall(call model.Tool) {
	index := len(a.toolCalls)
	if call.Index != nil {
		index = *call.Index
	}
	for len(a.toolCalls) <= index {
		a.toolCalls = append(a.toolCalls, model.Tool{Type: "function"})
	}
	target := &a.toolCalls[index]
	if call.Id != "" {
		target.Id = call.Id
	}
	if call.Type != "" {
		target.Type = call.Type
	}
	if call.Function.Name != "" {
		target.Function.Name = call.Function.Name
	}
	if fragment, ok := call.Function.Arguments.(string); ok {
		previous, _ := target.Function.Arguments.(string)
		target.Function.Arguments = previous + fragment
	}
}

func (a *accumulator) response(last *model.ChatCompletionsStreamResponse, usage *model.Usage) *model.TextResponse {
	response := &model.TextResponse{
		Id:                last.Id,
		Model:             last.Model,
		Object:            model.ObjectChatCompletion,
		Created:           last.Created,
		SystemFingerprint: last.SystemFingerprint,
		Usage:             usage.Clone(),
	}
	if a.relayMode == constant.RelayModeCompletions {
		response.Object = model.ObjectTextCompletion
	}
	indexes := make([]int, 0, len(a.choices))
	for index := range a.choices {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		acc := a.choices[index]
		choice := model.TextResponseChoice{Index: index, FinishReason: acc.finishReason}
		if a.relayMode == constant.RelayModeCompletions {
			text := acc.content.String()
			choice.Text = &text
		} else {
			choice.Message = &model.Message{
				Role:             "assistant",
				Content:          acc.content.String(),
				ReasoningContent: acc.reasoning.String(),
				ToolCalls:        acc.toolCalls,
			}
		}
		response.Choices = append(response.Choices, choice)
	}
	return response
}
