package common

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBodyContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestUnmarshalBodyReusable(t *testing.T) {
	c := newBodyContext(`{"model":"gpt-4o"}`)
	var first, second struct {
		Model string `json:"model"`
	}
	require.NoError(t, UnmarshalBodyReusable(c, &first))
	require.NoError(t, UnmarshalBodyReusable(c, &second))
	assert.Equal(t, "gpt-4o", first.Model)
	assert.Equal(t, first, second)

	rest, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"gpt-4o"}`, string(rest))
}

func TestGetRequestBodyLimit(t *testing.T) {
	saved := config.MaxRequestBodyMB
	defer func() { config.MaxRequestBodyMB = saved }()
	config.MaxRequestBodyMB = 1

	c := newBodyContext(strings.Repeat("a", 2<<20))
	_, err := GetRequestBody(c)
	assert.Error(t, err)

	config.MaxRequestBodyMB = 0
	c = newBodyContext(strings.Repeat("a", 2<<20))
	body, err := GetRequestBody(c)
	require.NoError(t, err)
	assert.Len(t, body, 2<<20)
}

func TestSetEventStreamHeaders(t *testing.T) {
	c := newBodyContext("")
	SetEventStreamHeaders(c)
	assert.Equal(t, "text/event-stream", c.Writer.Header().Get("Content-Type"))
	assert.Equal(t, "no", c.Writer.Header().Get("X-Accel-Buffering"))
}
