package channel

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/songquanpeng/litegate/relay/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSSEData(t *testing.T) {
	body := "event: message_start\r\ndata: {\"a\":1}\r\n\r\n: keep-alive\ndata:{\"b\":2}\n\ndata: [DONE]\ndata: {\"c\":3}\n"
	var got []string
	err := ScanSSEData(strings.NewReader(body), func(data string) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
}

func TestScanSSEDataLongLines(t *testing.T) {
	long := strings.Repeat("x", 4<<20)
	body := "data: " + long + "\n\ndata: tail\n"
	var got []string
	err := ScanSSEData(strings.NewReader(body), func(data string) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0], len(long))
	assert.Equal(t, "tail", got[1])
}

func TestScanSSEDataStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ScanSSEData(strings.NewReader("data: 1\ndata: 2\n"), func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestApplyHeadersOverride(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer old")
	ApplyHeadersOverride(req, &util.RelayMeta{
		APIKey:          "sk-1",
		HeadersOverride: map[string]string{"Authorization": "Token {api_key}", "X-Team": "a"},
	})
	assert.Equal(t, "Token sk-1", req.Header.Get("Authorization"))
	assert.Equal(t, "a", req.Header.Get("X-Team"))
}
