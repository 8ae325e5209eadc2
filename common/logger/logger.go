package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/helper"
)

const (
	loggerDEBUG = "debug"
	loggerINFO  = "info"
	loggerWarn  = "warn"
	loggerError = "error"
)

// LogEntry is one JSON log line.
type LogEntry struct {
	Ts        string `json:"ts"`
	Level     string `json:"level"`
	RequestId string `json:"request_id,omitempty"`
	Msg       string `json:"msg"`
	Service   string `json:"service"`
	Instance  string `json:"instance"`
}

var setupLogLock sync.Mutex
var setupLogWorking bool
var generalLogFile *os.File
var errorLogFile *os.File

// SetupLogger tees gin's writers into daily files under LogDir.
// It is re-run lazily so a long-running process rolls over to a new file each day.
func SetupLogger() {
	if LogDir == "" {
		return
	}
	ok := setupLogLock.TryLock()
	if !ok {
		log.Println("setup log is already working")
		return
	}
	defer func() {
		setupLogLock.Unlock()
		setupLogWorking = false
	}()

	dateStr := time.Now().Format("20060102")

	generalLogPath := filepath.Join(LogDir, fmt.Sprintf("litegate-%s.log", dateStr))
	fd, err := os.OpenFile(generalLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal("failed to open general log file")
	}

	errorLogPath := filepath.Join(LogDir, fmt.Sprintf("litegate-error-%s.log", dateStr))
	errFd, err := os.OpenFile(errorLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal("failed to open error log file")
	}

	if generalLogFile != nil {
		_ = generalLogFile.Close()
	}
	if errorLogFile != nil {
		_ = errorLogFile.Close()
	}
	generalLogFile = fd
	errorLogFile = errFd

	gin.DefaultWriter = io.MultiWriter(os.Stdout, generalLogFile)
	gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, errorLogFile)
}

func writeJSONLog(writer io.Writer, level, requestId, msg string) {
	entry := LogEntry{
		Ts:        time.Now().Format(time.RFC3339Nano),
		Level:     level,
		RequestId: requestId,
		Msg:       msg,
		Service:   config.ServiceName,
		Instance:  config.InstanceId,
	}
	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(writer, `{"ts":"%s","level":"%s","msg":"json marshal error","service":"%s","instance":"%s"}`+"\n",
			entry.Ts, level, config.ServiceName, config.InstanceId)
		return
	}
	_, _ = writer.Write(append(jsonBytes, '\n'))
}

func SysLog(s string) {
	writeJSONLog(gin.DefaultWriter, loggerINFO, "", s)
}

func SysLogf(format string, a ...any) {
	SysLog(fmt.Sprintf(format, a...))
}

func SysError(s string) {
	writeJSONLog(gin.DefaultErrorWriter, loggerError, "", s)
}

func SysErrorf(format string, a ...any) {
	SysError(fmt.Sprintf(format, a...))
}

func Debug(ctx context.Context, msg string) {
	if config.DebugEnabled {
		logHelper(ctx, loggerDEBUG, msg)
	}
}

func Info(ctx context.Context, msg string) {
	logHelper(ctx, loggerINFO, msg)
}

func Warn(ctx context.Context, msg string) {
	logHelper(ctx, loggerWarn, msg)
}

func Error(ctx context.Context, msg string) {
	logHelper(ctx, loggerError, msg)
}

func Debugf(ctx context.Context, format string, a ...any) {
	Debug(ctx, fmt.Sprintf(format, a...))
}

func Infof(ctx context.Context, format string, a ...any) {
	Info(ctx, fmt.Sprintf(format, a...))
}

func Warnf(ctx context.Context, format string, a ...any) {
	Warn(ctx, fmt.Sprintf(format, a...))
}

func Errorf(ctx context.Context, format string, a ...any) {
	Error(ctx, fmt.Sprintf(format, a...))
}

// RequestID returns the request id carried by ctx, or "" when there is none.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(RequestIdKey); v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// WithRequestID stores id on ctx under the key the logger reads.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIdKey, id)
}

func logHelper(ctx context.Context, level string, msg string) {
	// errors go to stderr + error file, everything else to stdout + general file
	writer := gin.DefaultWriter
	if level == loggerError {
		writer = gin.DefaultErrorWriter
	}

	id := RequestID(ctx)
	if id == "" {
		id = helper.GenRequestID()
	}

	writeJSONLog(writer, level, id, msg)

	if !setupLogWorking && LogDir != "" {
		setupLogWorking = true
		go func() {
			SetupLogger()
		}()
	}
}

func FatalLog(v ...any) {
	msg := fmt.Sprint(v...)
	writeJSONLog(gin.DefaultErrorWriter, "fatal", "", msg)
	os.Exit(1)
}
