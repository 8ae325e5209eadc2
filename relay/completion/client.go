package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/helper"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/cache"
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/constant"
	relayhelper "github.com/songquanpeng/litegate/relay/helper"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/songquanpeng/litegate/relay/util"
)

// Client runs completion calls against the configured providers.
type Client struct {
	cache       *cache.Cache
	promptCache *cache.PromptCacheTracker
	recorders   []Recorder
}

type Option func(*Client)

func WithCache(c *cache.Cache) Option {
	return func(client *Client) {
		client.cache = c
	}
}

func WithPromptCacheTracker(t *cache.PromptCacheTracker) Option {
	return func(client *Client) {
		client.promptCache = t
	}
}

func WithRecorder(r Recorder) Option {
	return func(client *Client) {
		if r != nil {
			client.recorders = append(client.recorders, r)
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Cache() *cache.Cache {
	return c.cache
}

func (c *Client) PromptCache() *cache.PromptCacheTracker {
	return c.promptCache
}

type Result struct {
	Response *model.TextResponse
	Usage    *model.Usage
	CacheHit bool
	Provider string
	Duration time.Duration
}

// Completion runs a non-streaming call. Provider failures are returned as
// *model.RelayError.
func (c *Client) Completion(ctx context.Context, request *model.GeneralOpenAIRequest) (*Result, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}
	startTime := time.Now()
	textRequest := *request
	textRequest.Stream = false
	textRequest.StreamOptions = nil

	relayMode := RelayModeOf(&textRequest)
	if err := ValidateRequest(&textRequest, relayMode); err != nil {
		return nil, openai.ErrorWrapper(err, "invalid_text_request", http.StatusBadRequest).AsError()
	}
	meta := c.newMeta(ctx, relayMode, &textRequest, startTime)
	callType := constant.RelayMode2CallType(relayMode)

	if cached, ok := c.cache.Get(ctx, &textRequest, callType); ok {
		usage := cached.Usage.Clone()
		if usage == nil {
			usage = &model.Usage{}
		}
		cached.Usage = usage.Finalize()
		logger.Infof(ctx, "cache hit for %s, %s", meta.OriginModelName, common.LogTokens(usage.PromptTokens, usage.CompletionTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens))
		result := &Result{Response: cached, Usage: usage, CacheHit: true, Provider: meta.Provider, Duration: time.Since(startTime)}
		c.record(ctx, c.newRecord(meta, usage, result.Duration, 0, true, nil))
		return result, nil
	}

	adaptor, relayErr := c.prepare(meta, &textRequest)
	if relayErr != nil {
		c.record(ctx, c.newRecord(meta, nil, time.Since(startTime), 0, false, relayErr))
		return nil, relayErr.AsError()
	}
	resp, relayErr := doRequest(ctx, adaptor, meta, &textRequest)
	if relayErr != nil {
		c.record(ctx, c.newRecord(meta, nil, time.Since(startTime), 0, false, relayErr))
		return nil, relayErr.AsError()
	}
	response, relayErr := adaptor.DoResponse(resp, meta)
	if relayErr != nil {
		logger.Errorf(ctx, "DoResponse failed: %s", relayErr.Message)
		c.record(ctx, c.newRecord(meta, nil, time.Since(startTime), 0, false, relayErr))
		return nil, relayErr.AsError()
	}
	if response.Usage == nil {
		response.Usage = &model.Usage{PromptTokens: meta.PromptTokens}
	}
	response.Usage.Finalize()
	if response.Id == "" {
		response.Id = helper.GetResponseID("chatcmpl")
	}
	if response.Created == 0 {
		response.Created = helper.GetTimestamp()
	}

	duration := time.Since(startTime)
	logger.Infof(ctx, "%s via %s in %.3fs, %s", meta.OriginModelName, meta.Provider, helper.RoundSeconds(duration),
		common.LogTokens(response.Usage.PromptTokens, response.Usage.CompletionTokens, response.Usage.CacheCreationInputTokens, response.Usage.CacheReadInputTokens))

	c.afterResponse(ctx, meta, &textRequest, callType, response)
	c.record(ctx, c.newRecord(meta, response.Usage, duration, 0, false, nil))
	return &Result{
		Response: response,
		Usage:    response.Usage,
		Provider: meta.Provider,
		Duration: duration,
	}, nil
}

func (c *Client) newMeta(ctx context.Context, relayMode int, request *model.GeneralOpenAIRequest, startTime time.Time) *util.RelayMeta {
	meta := util.GetRelayMeta(relayMode, request)
	meta.RequestId = logger.RequestID(ctx)
	meta.StartTime = startTime
	return meta
}

func (c *Client) prepare(meta *util.RelayMeta, request *model.GeneralOpenAIRequest) (channel.Adaptor, *model.ErrorWithStatusCode) {
	adaptor := relayhelper.GetAdaptor(meta.APIType)
	if adaptor == nil {
		return nil, openai.ErrorWrapper(fmt.Errorf("invalid api type: %d", meta.APIType), "invalid_api_type", http.StatusBadRequest)
	}
	adaptor.Init(meta)
	meta.PromptTokens = openai.CountRequestTokens(request, meta.ActualModelName, meta.Mode == constant.RelayModeCompletions)
	return adaptor, nil
}

func doRequest(ctx context.Context, adaptor channel.Adaptor, meta *util.RelayMeta, request *model.GeneralOpenAIRequest) (*http.Response, *model.ErrorWithStatusCode) {
	convertedRequest, err := adaptor.ConvertRequest(request)
	if err != nil {
		return nil, openai.ErrorWrapper(err, "convert_request_failed", http.StatusInternalServerError)
	}
	jsonData, err := json.Marshal(convertedRequest)
	if err != nil {
		return nil, openai.ErrorWrapper(err, "json_marshal_failed", http.StatusInternalServerError)
	}
	logger.Debugf(ctx, "converted request: \n%s", string(jsonData))

	resp, err := adaptor.DoRequest(ctx, meta, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf(ctx, "DoRequest failed: %s", err.Error())
		return nil, openai.ErrorWrapper(err, "do_request_failed", http.StatusBadGateway)
	}
	errorHappened := resp.StatusCode/100 != 2 || (meta.IsStream && resp.Header.Get("Content-Type") == "application/json")
	if errorHappened {
		return nil, util.RelayErrorHandlerWithAdaptor(resp, adaptor)
	}
	return resp, nil
}

// afterResponse stores the response in the cache and tracks prompt cache
// activity. Both run in the background and only log failures.
func (c *Client) afterResponse(ctx context.Context, meta *util.RelayMeta, request *model.GeneralOpenAIRequest, callType string, response *model.TextResponse) {
	ctx = context.WithoutCancel(ctx)
	if c.cache.ShouldUseCache(request, callType) {
		// the caller owns response once Completion returns
		snapshot := response.Clone()
		common.RelayCtxGo(ctx, func() {
			if err := c.cache.Add(ctx, request, callType, snapshot); err != nil {
				logger.Warnf(ctx, "failed to cache response: %s", err.Error())
			}
		})
	}
	if c.promptCache != nil && response.Usage.HasPromptCache() {
		previous := request.MetadataString("previous_response_id")
		responseID, usage := response.Id, response.Usage.Clone()
		common.RelayCtxGo(ctx, func() {
			if _, err := c.promptCache.Track(ctx, responseID, meta.Provider, previous, usage); err != nil {
				logger.Warnf(ctx, "failed to track prompt cache: %s", err.Error())
			}
		})
	}
}

func (c *Client) newRecord(meta *util.RelayMeta, usage *model.Usage, duration, firstTokenLatency time.Duration, cacheHit bool, relayErr *model.ErrorWithStatusCode) *Record {
	record := &Record{
		RequestId:         meta.RequestId,
		Provider:          meta.Provider,
		Model:             meta.OriginModelName,
		ActualModel:       meta.ActualModelName,
		Usage:             usage,
		Stream:            meta.IsStream,
		CacheHit:          cacheHit,
		Duration:          duration,
		FirstTokenLatency: firstTokenLatency,
	}
	if relayErr != nil {
		record.Failed = true
		record.ErrorMessage = relayErr.Message
	}
	if record.Usage == nil {
		record.Usage = &model.Usage{}
	}
	return record
}
