package controller

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/completion"
	"github.com/songquanpeng/litegate/relay/controller"
	"github.com/songquanpeng/litegate/relay/model"
)

var completionClient = completion.NewClient()

// SetCompletionClient installs the client the relay handlers use.
func SetCompletionClient(client *completion.Client) {
	if client != nil {
		completionClient = client
	}
}

func Relay(c *gin.Context) {
	ctx := c.Request.Context()
	if config.DebugEnabled {
		requestBody, _ := common.GetRequestBody(c)
		logger.Debugf(ctx, "request body: %s", string(requestBody))
	}

	bizErr := controller.RelayTextHelper(c, completionClient)
	for i := config.RetryTimes; bizErr != nil && i > 0 && shouldRetry(c, bizErr.StatusCode); i-- {
		logger.Infof(ctx, "retrying after status %d (remain times %d): %s", bizErr.StatusCode, i, bizErr.Message)
		requestBody, err := common.GetRequestBody(c)
		if err != nil {
			logger.Errorf(ctx, "GetRequestBody failed: %v", err)
			break
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		bizErr = controller.RelayTextHelper(c, completionClient)
	}
	if bizErr == nil {
		return
	}
	logger.Errorf(ctx, "relay error (status %d): %s", bizErr.StatusCode, bizErr.Message)
	c.JSON(bizErr.StatusCode, gin.H{
		"error": gin.H{
			"message": fmt.Sprintf("%s (request id: %s)", bizErr.Message, c.GetString(logger.RequestIdKey)),
			"type":    bizErr.Type,
			"param":   bizErr.Param,
			"code":    bizErr.Code,
		},
	})
}

// shouldRetry retries rate limits and upstream failures, as long as nothing
// has been written to the client yet.
func shouldRetry(c *gin.Context, statusCode int) bool {
	if c.Writer.Written() {
		return false
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return true
	case statusCode/100 == 5:
		return true
	}
	return false
}

func RelayNotImplemented(c *gin.Context) {
	err := model.Error{
		Message: "API not implemented",
		Type:    "api_error",
		Code:    "api_not_implemented",
	}
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": err,
	})
}

func RelayNotFound(c *gin.Context) {
	err := model.Error{
		Message: fmt.Sprintf("Invalid URL (%s %s)", c.Request.Method, c.Request.URL.Path),
		Type:    "invalid_request_error",
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": err,
	})
}
