package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
)

// accessLogEntry is one JSON line of the access log.
type accessLogEntry struct {
	Ts        string `json:"ts"`
	Level     string `json:"level"`
	RequestId string `json:"request_id,omitempty"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	ClientIP  string `json:"client_ip"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	BodySize  int    `json:"body_size"`
	AccessKey string `json:"access_key,omitempty"`
	Error     string `json:"error,omitempty"`
	Service   string `json:"service"`
	Instance  string `json:"instance"`
}

// accessLogLevel maps a status to a level, or "" when the line is skipped.
// Successful requests are covered by metrics and only logged in debug mode.
func accessLogLevel(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "warn"
	case config.DebugEnabled:
		return "debug"
	}
	return ""
}

// maskKey keeps the last four characters of an access key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func formatAccessLog(param gin.LogFormatterParams) string {
	level := accessLogLevel(param.StatusCode)
	if level == "" {
		return ""
	}
	entry := accessLogEntry{
		Ts:        param.TimeStamp.Format(time.RFC3339Nano),
		Level:     level,
		Status:    param.StatusCode,
		LatencyMs: param.Latency.Milliseconds(),
		ClientIP:  param.ClientIP,
		Method:    param.Method,
		Path:      param.Path,
		BodySize:  param.BodySize,
		Error:     param.ErrorMessage,
		Service:   config.ServiceName,
		Instance:  config.InstanceId,
	}
	if v, ok := param.Keys[logger.RequestIdKey].(string); ok {
		entry.RequestId = v
	}
	if v, ok := param.Keys[common.CtxKeyAccessKey].(string); ok && v != "" {
		entry.AccessKey = maskKey(v)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return `{"level":"error","msg":"access log marshal error"}` + "\n"
	}
	return string(data) + "\n"
}

// SetUpLogger installs the JSON access log. Scrapes of /metrics are never logged.
func SetUpLogger(server *gin.Engine) {
	server.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: formatAccessLog,
		SkipPaths: []string{"/metrics"},
	}))
}
