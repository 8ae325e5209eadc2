package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/songquanpeng/litegate/relay/model"
)

const (
	promptCacheProviderKey = "litegate:prompt_cache:%s"
	promptCacheLengthKey   = "litegate:prompt_cache_length:%s"

	promptCacheShortMinutes = 5
	promptCacheLongMinutes  = 60
)

type PromptCacheEntry struct {
	ResponseID    string        `json:"response_id"`
	Provider      string        `json:"provider"`
	ExpireMinutes int64         `json:"expire_minutes"`
	TTL           time.Duration `json:"ttl"`
}

// PromptCacheTracker remembers which provider holds a live prompt cache
// for a response, for as long as the provider keeps it.
type PromptCacheTracker struct {
	rdb redis.Cmdable
}

// NewPromptCacheTracker returns nil when rdb is nil; a nil tracker is a no-op.
func NewPromptCacheTracker(rdb redis.Cmdable) *PromptCacheTracker {
	if rdb == nil {
		return nil
	}
	return &PromptCacheTracker{rdb: rdb}
}

// Track records responseID when usage shows prompt cache activity and
// returns the expiry it used. previousResponseID is the response whose
// cache this request read from, if the caller knows it.
func (t *PromptCacheTracker) Track(ctx context.Context, responseID, provider, previousResponseID string, usage *model.Usage) (time.Duration, error) {
	if t == nil || usage == nil || !usage.HasPromptCache() {
		return 0, nil
	}
	if responseID == "" {
		return 0, errors.New("empty response id")
	}
	if provider == "" {
		return 0, errors.New("empty provider")
	}

	expire := int64(promptCacheShortMinutes)
	if usage.CacheCreation != nil && usage.CacheCreation.Ephemeral1hInputTokens > 0 {
		expire = promptCacheLongMinutes
	}
	if usage.CacheReadInputTokens > 0 && previousResponseID != "" {
		// a read refreshes the cache for the length it was created with
		previous, err := t.rdb.Get(ctx, fmt.Sprintf(promptCacheLengthKey, previousResponseID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, errors.Wrap(err, "read previous prompt cache length")
		}
		if minutes, parseErr := strconv.ParseInt(previous, 10, 64); parseErr == nil {
			expire = max(expire, minutes)
		}
	}

	ttl := time.Duration(expire) * time.Minute
	pipe := t.rdb.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(promptCacheProviderKey, responseID), provider, ttl)
	pipe.Set(ctx, fmt.Sprintf(promptCacheLengthKey, responseID), expire, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "set prompt cache to redis")
	}
	return ttl, nil
}

func (t *PromptCacheTracker) Lookup(ctx context.Context, responseID string) (*PromptCacheEntry, error) {
	if t == nil {
		return nil, nil
	}
	key := fmt.Sprintf(promptCacheProviderKey, responseID)
	provider, err := t.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get prompt cache provider")
	}
	entry := &PromptCacheEntry{ResponseID: responseID, Provider: provider}
	if length, err := t.rdb.Get(ctx, fmt.Sprintf(promptCacheLengthKey, responseID)).Int64(); err == nil {
		entry.ExpireMinutes = length
	}
	if ttl, err := t.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		entry.TTL = ttl
	}
	return entry, nil
}

// List returns every tracked prompt cache that has not expired yet.
func (t *PromptCacheTracker) List(ctx context.Context) ([]*PromptCacheEntry, error) {
	if t == nil {
		return nil, nil
	}
	prefix := strings.TrimSuffix(promptCacheProviderKey, "%s")
	var entries []*PromptCacheEntry
	var cursor uint64
	for {
		keys, next, err := t.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scan prompt caches")
		}
		for _, key := range keys {
			entry, err := t.Lookup(ctx, strings.TrimPrefix(key, prefix))
			if err != nil {
				return nil, err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return entries, nil
}
