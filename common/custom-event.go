package common

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	contentType = []string{"text/event-stream"}
	noCache     = []string{"no-cache"}
)

var dataReplacer = strings.NewReplacer(
	"\n", "\ndata:",
	"\r", "\\r")

// CustomEvent is a gin renderer for pre-formatted SSE lines ("data: ...").
type CustomEvent struct {
	Event string
	Id    string
	Retry uint
	Data  interface{}
}

func encode(writer io.Writer, event CustomEvent) error {
	return writeData(writer, event.Data)
}

func writeData(w io.Writer, data interface{}) error {
	str := fmt.Sprint(data)
	if _, err := dataReplacer.WriteString(w, str); err != nil {
		return err
	}
	if strings.HasPrefix(str, "data") {
		_, err := w.Write([]byte("\n\n"))
		return err
	}
	return nil
}

func (r CustomEvent) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return encode(w, r)
}

func (r CustomEvent) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	header["Content-Type"] = contentType

	if _, exist := header["Cache-Control"]; !exist {
		header["Cache-Control"] = noCache
	}
}
