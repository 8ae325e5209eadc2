package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/common/render"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/completion"
	"github.com/songquanpeng/litegate/relay/helper"
	"github.com/songquanpeng/litegate/relay/model"
)

// RelayTextHelper serves /v1/chat/completions and /v1/completions.
func RelayTextHelper(c *gin.Context, client *completion.Client) *model.ErrorWithStatusCode {
	ctx := c.Request.Context()
	textRequest, err := getTextRequest(c)
	if err != nil {
		logger.Errorf(ctx, "getTextRequest failed: %s", err.Error())
		return openai.ErrorWrapper(err, "invalid_text_request", http.StatusBadRequest)
	}
	if textRequest.Stream {
		return relayStream(c, client, textRequest)
	}

	result, err := client.Completion(ctx, textRequest)
	if err != nil {
		return asRelayError(err)
	}
	c.Header(common.CacheHitHeader, strconv.FormatBool(result.CacheHit))
	c.Header(ResponseIDHeader, result.Response.Id)
	c.JSON(http.StatusOK, result.Response)
	return nil
}

func relayStream(c *gin.Context, client *completion.Client, textRequest *model.GeneralOpenAIRequest) *model.ErrorWithStatusCode {
	ctx := c.Request.Context()
	stream, err := client.Stream(ctx, textRequest)
	if err != nil {
		return asRelayError(err)
	}
	defer stream.Close()

	common.SetEventStreamHeaders(c)
	c.Header(common.CacheHitHeader, strconv.FormatBool(stream.CacheHit()))

	// writes to c.Writer are serialized with the keep-alive pinger, which
	// starts after the first chunk so the response id header is still writable
	var mu sync.Mutex
	stopPing := func() {}
	defer func() { stopPing() }()

	first := true
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// headers are gone, the error travels as a final event
			relayErr := asRelayError(err)
			logger.Errorf(ctx, "stream failed: %s", relayErr.Message)
			if ctx.Err() == nil {
				mu.Lock()
				_ = render.ObjectData(c, gin.H{"error": relayErr.Error})
				mu.Unlock()
			}
			return nil
		}
		if first {
			first = false
			if chunk.Id != "" {
				c.Header(ResponseIDHeader, chunk.Id)
			}
			if err := render.ObjectData(c, chunk); err != nil {
				logger.Errorf(ctx, "render chunk failed: %s", err.Error())
				return nil
			}
			stopPing = startPing(c, &mu, time.Duration(config.StreamPingInterval)*time.Second)
			continue
		}
		mu.Lock()
		err = render.ObjectData(c, chunk)
		mu.Unlock()
		if err != nil {
			logger.Errorf(ctx, "render chunk failed: %s", err.Error())
			return nil
		}
	}
	mu.Lock()
	defer mu.Unlock()
	render.Done(c)
	return nil
}

// startPing writes an SSE comment every interval until the returned func is
// called. A zero interval disables it.
func startPing(c *gin.Context, mu *sync.Mutex, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				select {
				case <-done:
					mu.Unlock()
					return
				default:
				}
				if err := helper.PingData(c); err != nil {
					logger.Warnf(c.Request.Context(), "stream ping failed: %s", err.Error())
				}
				mu.Unlock()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			close(done)
			mu.Unlock()
		})
	}
}
