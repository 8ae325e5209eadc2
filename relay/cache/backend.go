package cache

import (
	"context"
	"time"
)

// Backend stores opaque values under string keys. A ttl of zero means the
// value does not expire. Get reports a miss with ok == false and a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// expiringValue is the envelope used by backends without native expiry.
type expiringValue struct {
	ExpiresAt int64  `json:"expires_at_ms,omitempty"` // unix milliseconds, 0 = never
	Value     []byte `json:"value"`
}

func newExpiringValue(value []byte, ttl time.Duration) expiringValue {
	v := expiringValue{Value: value}
	if ttl > 0 {
		v.ExpiresAt = time.Now().Add(ttl).UnixMilli()
	}
	return v
}

func (v expiringValue) expired(now time.Time) bool {
	return v.ExpiresAt > 0 && now.UnixMilli() >= v.ExpiresAt
}
