package helper

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func FlushWriter(c *gin.Context) error {
	if c.Writer == nil {
		return nil
	}
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
		return nil
	}
	return errors.New("streaming error: flusher not found")
}

// PingData writes an SSE comment so idle proxies keep the stream open.
func PingData(c *gin.Context) error {
	if _, err := c.Writer.Write([]byte(": PING\n\n")); err != nil {
		return err
	}
	return FlushWriter(c)
}
