package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func Bool(env string, defaultValue bool) bool {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	return strings.ToLower(os.Getenv(env)) == "true"
}

func Int(env string, defaultValue int) int {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(os.Getenv(env))
	if err != nil {
		return defaultValue
	}
	return num
}

func Float64(env string, defaultValue float64) float64 {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	num, err := strconv.ParseFloat(os.Getenv(env), 64)
	if err != nil {
		return defaultValue
	}
	return num
}

func String(env string, defaultValue string) string {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	return os.Getenv(env)
}

// Duration accepts Go duration strings ("90s", "5m") or a plain number of seconds.
func Duration(env string, defaultValue time.Duration) time.Duration {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	raw := os.Getenv(env)
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}

// List splits a comma separated variable, dropping empty items.
func List(env string) []string {
	raw := os.Getenv(env)
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
