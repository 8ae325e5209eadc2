package common

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/songquanpeng/litegate/common/config"
)

const ctxKeyRequestBody = "key_request_body"

// GetRequestBody reads the request body once and keeps it on the context,
// so retries and later handlers see the same bytes.
func GetRequestBody(c *gin.Context) ([]byte, error) {
	if cached, ok := c.Get(ctxKeyRequestBody); ok {
		if body, ok := cached.([]byte); ok {
			return body, nil
		}
	}
	reader := io.Reader(c.Request.Body)
	if config.MaxRequestBodyMB > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, int64(config.MaxRequestBodyMB)<<20)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	_ = c.Request.Body.Close()
	c.Set(ctxKeyRequestBody, body)
	return body, nil
}

// UnmarshalBodyReusable decodes the body into v and rewinds it.
func UnmarshalBodyReusable(c *gin.Context, v any) error {
	body, err := GetRequestBody(c)
	if err != nil {
		return err
	}
	defer func() {
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}()
	contentType := c.Request.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		return json.Unmarshal(body, v)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return c.ShouldBind(v)
}

var eventStreamHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"Transfer-Encoding": "chunked",
	// nginx buffers responses unless told otherwise
	"X-Accel-Buffering": "no",
}

func SetEventStreamHeaders(c *gin.Context) {
	for k, v := range eventStreamHeaders {
		c.Writer.Header().Set(k, v)
	}
}
