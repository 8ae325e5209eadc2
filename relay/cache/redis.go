package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type RedisBackend struct {
	rdb redis.Cmdable
}

func NewRedisBackend(rdb redis.Cmdable) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return value, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Wrapf(r.rdb.Set(ctx, key, value, ttl).Err(), "redis set %s", key)
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(r.rdb.Del(ctx, keys...).Err(), "redis del")
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return errors.Wrap(r.rdb.Ping(ctx).Err(), "redis ping")
}

// Close is a no-op; the client is shared with the rest of the process.
func (r *RedisBackend) Close() error {
	return nil
}
