package image

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestGetImageFromDataURL(t *testing.T) {
	mime, data, err := GetImageFromUrl("data:image/png;base64,QUJD")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "QUJD", data)
}

func TestGetImageFromRemoteSniffsFormat(t *testing.T) {
	raw := pngBytes(t, 4, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	mime, data, err := GetImageFromUrl(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), data)
}

func TestGetImageSize(t *testing.T) {
	raw := pngBytes(t, 640, 480)
	w, h, err := GetImageSize("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestGetImageFromRemoteRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("%PDF-1.4 not an image"))
	}))
	defer srv.Close()

	_, _, err := GetImageFromUrl(srv.URL)
	assert.Error(t, err)
}
