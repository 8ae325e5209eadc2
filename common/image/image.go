package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// maxImageBytes bounds downloads of remote images inlined into provider requests.
const maxImageBytes = 20 << 20

var dataURLPattern = regexp.MustCompile(`data:image/([^;]+);base64,(.*)`)

var client = &http.Client{Timeout: 30 * time.Second}

var readerPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Reader{}
	},
}

func fetch(url string) ([]byte, string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "litegate")
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// sniffImageType detects the media type from the content. Returns "" when
// the data is not an image.
func sniffImageType(data []byte) string {
	detected := mimetype.Detect(data).String()
	if !strings.HasPrefix(detected, "image/") {
		return ""
	}
	return detected
}

// GetImageFromUrl returns the media type and base64 payload of an image given
// either as a data URL or as a remote URL.
func GetImageFromUrl(url string) (mimeType string, data string, err error) {
	matches := dataURLPattern.FindStringSubmatch(url)
	if len(matches) == 3 {
		return "image/" + matches[1], matches[2], nil
	}
	raw, contentType, err := fetch(url)
	if err != nil {
		return "", "", err
	}
	mimeType = contentType
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = sniffImageType(raw)
		if mimeType == "" {
			return "", "", fmt.Errorf("url %s is not an image", url)
		}
	}
	return mimeType, base64.StdEncoding.EncodeToString(raw), nil
}

func GetImageSizeFromBase64(encoded string) (width int, height int, err error) {
	decoded, err := base64.StdEncoding.DecodeString(dataURLPattern.ReplaceAllString(encoded, "$2"))
	if err != nil {
		return 0, 0, err
	}
	return decodeSize(decoded)
}

func GetImageSizeFromUrl(url string) (width int, height int, err error) {
	raw, _, err := fetch(url)
	if err != nil {
		return 0, 0, err
	}
	return decodeSize(raw)
}

func decodeSize(data []byte) (int, int, error) {
	reader := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(reader)
	reader.Reset(data)
	img, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}
	return img.Width, img.Height, nil
}

func GetImageSize(image string) (width int, height int, err error) {
	if strings.HasPrefix(image, "data:image/") {
		return GetImageSizeFromBase64(image)
	}
	return GetImageSizeFromUrl(image)
}
