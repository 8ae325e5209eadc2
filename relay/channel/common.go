package channel

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/songquanpeng/litegate/relay/util"
)

func SetupCommonRequestHeader(req *http.Request, meta *util.RelayMeta) {
	req.Header.Set("Content-Type", "application/json")
	if meta.IsStream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
}

func DoRequestHelper(a Adaptor, ctx context.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	fullRequestURL, err := a.GetRequestURL(meta)
	if err != nil {
		return nil, fmt.Errorf("get request url failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullRequestURL, requestBody)
	if err != nil {
		return nil, fmt.Errorf("new request failed: %w", err)
	}
	err = a.SetupRequestHeader(req, meta)
	if err != nil {
		return nil, fmt.Errorf("setup request header failed: %w", err)
	}
	// deployment headers win over the defaults
	ApplyHeadersOverride(req, meta)

	resp, err := DoRequest(req)
	if err != nil {
		return nil, fmt.Errorf("do request failed: %w", err)
	}
	return resp, nil
}

// ApplyHeadersOverride sets the deployment's extra headers. "{api_key}" in a
// value is replaced with the deployment's key.
func ApplyHeadersOverride(req *http.Request, meta *util.RelayMeta) {
	if len(meta.HeadersOverride) == 0 {
		return
	}
	for key, value := range meta.HeadersOverride {
		if strings.Contains(value, "{api_key}") {
			value = strings.ReplaceAll(value, "{api_key}", meta.APIKey)
		}
		req.Header.Set(key, value)
	}
}

func DoRequest(req *http.Request) (*http.Response, error) {
	resp, err := util.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("resp is nil")
	}
	return resp, nil
}

const maxSSELineSize = 10 * 1024 * 1024

// ScanSSEData calls fn with the payload of every "data:" line of an SSE body
// until "[DONE]", EOF, or fn returns an error.
func ScanSSEData(body io.Reader, fn func(data string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELineSize)
	scanner.Split(func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[0:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	})
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if strings.HasPrefix(data, "[DONE]") {
			return nil
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}
