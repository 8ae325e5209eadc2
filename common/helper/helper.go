package helper

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GetTimestamp() int64 {
	return time.Now().Unix()
}

func GetTimeString() string {
	now := time.Now()
	return fmt.Sprintf("%s%d", now.Format("20060102150405"), now.UnixNano()%1e9)
}

func GetUUID() string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	return code
}

func GenRequestID() string {
	return GetTimeString() + GetRandomNumberString(8)
}

// GetResponseID builds an OpenAI style completion id, e.g. chatcmpl-<uuid>.
func GetResponseID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, GetUUID())
}

const numberChars = "0123456789"

func GetRandomNumberString(length int) string {
	key := make([]byte, length)
	for i := 0; i < length; i++ {
		key[i] = numberChars[rand.Intn(len(numberChars))]
	}
	return string(key)
}

// RoundSeconds keeps millisecond precision, the resolution stored in usage logs.
func RoundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
