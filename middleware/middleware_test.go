package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/monitor"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestKeyAuth(t *testing.T) {
	keys := []string{"sk-one", "sk-two"}
	router := gin.New()
	router.Use(RequestId(), keyAuth(func() []string { return keys }))
	router.GET("/v1/models", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(common.CtxKeyAccessKey))
	})

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"bearer", "Authorization", "Bearer sk-two", http.StatusOK},
		{"x-api-key", "x-api-key", "sk-one", http.StatusOK},
		{"wrong key", "Authorization", "Bearer sk-three", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	keys = nil
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestId(t *testing.T) {
	router := gin.New()
	router.Use(RequestId())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIdKey, "req-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(logger.RequestIdKey))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(logger.RequestIdKey))
}

func TestRelayPanicRecover(t *testing.T) {
	router := gin.New()
	router.Use(RelayPanicRecover())
	router.GET("/", func(c *gin.Context) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "litegate_panic")
}

func TestMetrics(t *testing.T) {
	router := gin.New()
	router.Use(Metrics())
	router.GET("/middleware-test/:id", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/middleware-test/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/middleware-test/2", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(monitor.RequestsTotal.WithLabelValues(http.MethodGet, "/middleware-test/:id", "2xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(monitor.InflightRequests))
}

func TestFormatAccessLog(t *testing.T) {
	param := gin.LogFormatterParams{
		TimeStamp:  time.Now(),
		StatusCode: http.StatusOK,
		Method:     http.MethodPost,
		Path:       "/v1/chat/completions",
	}
	assert.Empty(t, formatAccessLog(param))

	param.StatusCode = http.StatusBadGateway
	param.Latency = 1500 * time.Millisecond
	param.Keys = map[string]any{
		logger.RequestIdKey:    "req-1",
		common.CtxKeyAccessKey: "sk-secret-abcd",
	}
	var entry accessLogEntry
	assert.NoError(t, json.Unmarshal([]byte(formatAccessLog(param)), &entry))
	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "req-1", entry.RequestId)
	assert.Equal(t, "****abcd", entry.AccessKey)
	assert.EqualValues(t, 1500, entry.LatencyMs)

	assert.Equal(t, "warn", accessLogLevel(http.StatusUnauthorized))
	assert.Equal(t, "****", maskKey("abc"))
}
