package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
)

const (
	TypeLocal = "local"
	TypeRedis = "redis"
	TypeS3    = "s3"
	TypeDisk  = "disk"
)

type Mode string

const (
	ModeDefaultOn  Mode = "default_on"
	ModeDefaultOff Mode = "default_off"
)

type Config struct {
	Type               string
	Mode               Mode
	Namespace          string
	TTL                time.Duration
	DefaultInMemoryTTL time.Duration
	DefaultInRedisTTL  time.Duration
	SupportedCallTypes []string
	MaxItems           int
	DiskDir            string
	S3                 S3Config
	Redis              redis.Cmdable
}

// ConfigFromEnv collects the CACHE_* settings from common/config.
func ConfigFromEnv(rdb redis.Cmdable) Config {
	return Config{
		Type:               config.CacheType,
		Mode:               Mode(config.CacheMode),
		Namespace:          config.CacheNamespace,
		TTL:                config.CacheTTL,
		DefaultInMemoryTTL: config.CacheDefaultInMemoryTTL,
		DefaultInRedisTTL:  config.CacheDefaultInRedisTTL,
		SupportedCallTypes: config.CacheSupportedCallTypes,
		MaxItems:           config.CacheMaxItems,
		DiskDir:            config.CacheDiskDir,
		S3: S3Config{
			Bucket:       config.CacheS3Bucket,
			Region:       config.CacheS3Region,
			Endpoint:     config.CacheS3Endpoint,
			AccessKey:    config.CacheS3AccessKey,
			SecretKey:    config.CacheS3SecretKey,
			SessionToken: config.CacheS3SessionToken,
			Path:         config.CacheS3Path,
		},
		Redis: rdb,
	}
}

// Cache is the response cache. A nil *Cache is valid and never hits.
type Cache struct {
	Type               string
	Mode               Mode
	Namespace          string
	TTL                time.Duration
	SupportedCallTypes []string

	backend Backend
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Type == "" {
		cfg.Type = TypeLocal
	}
	var backend Backend
	switch cfg.Type {
	case TypeLocal:
		backend = NewMemoryBackend(cfg.MaxItems)
	case TypeRedis:
		if cfg.Redis == nil {
			return nil, errors.New("redis cache requires REDIS_CONN_STRING")
		}
		backend = NewRedisBackend(cfg.Redis)
	case TypeS3:
		b, err := NewS3Backend(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backend = b
	case TypeDisk:
		b, err := NewDiskBackend(cfg.DiskDir)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, errors.Errorf("unknown cache type %q", cfg.Type)
	}
	return NewWithBackend(cfg, backend)
}

func NewWithBackend(cfg Config, backend Backend) (*Cache, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeDefaultOn
	}
	if cfg.Mode != ModeDefaultOn && cfg.Mode != ModeDefaultOff {
		return nil, errors.Errorf("unknown cache mode %q", cfg.Mode)
	}
	callTypes := cfg.SupportedCallTypes
	if len(callTypes) == 0 {
		callTypes = constant.DefaultCacheCallTypes
	}
	ttl := cfg.TTL
	switch {
	case cfg.Type == TypeLocal && cfg.DefaultInMemoryTTL > 0:
		ttl = cfg.DefaultInMemoryTTL
	case cfg.Type == TypeRedis && cfg.DefaultInRedisTTL > 0:
		ttl = cfg.DefaultInRedisTTL
	}
	return &Cache{
		Type:               cfg.Type,
		Mode:               cfg.Mode,
		Namespace:          cfg.Namespace,
		TTL:                ttl,
		SupportedCallTypes: callTypes,
		backend:            backend,
	}, nil
}

// entry is the stored value.
type entry struct {
	Timestamp float64             `json:"timestamp"`
	Response  *model.TextResponse `json:"response"`
}

// GetCacheKey hashes the cache-relevant request parameters in a fixed order.
func (c *Cache) GetCacheKey(request *model.GeneralOpenAIRequest) string {
	var b strings.Builder
	add := func(name string, value any) {
		s, ok := paramString(value)
		if !ok {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(s)
	}
	add("model", cacheModel(request))
	add("messages", request.Messages)
	add("prompt", request.Prompt)
	add("temperature", request.Temperature)
	add("top_p", request.TopP)
	add("n", request.N)
	add("stop", request.Stop)
	add("max_tokens", request.MaxTokens)
	add("presence_penalty", request.PresencePenalty)
	add("frequency_penalty", request.FrequencyPenalty)
	add("logit_bias", request.LogitBias)
	add("user", request.User)
	add("response_format", request.ResponseFormat)
	add("seed", request.Seed)
	add("tools", request.Tools)
	add("tool_choice", request.ToolChoice)
	add("stream", request.Stream)
	add("input", request.Input)
	add("encoding_format", request.EncodingFormat)

	sum := sha256.Sum256([]byte(b.String()))
	key := hex.EncodeToString(sum[:])
	if namespace := c.namespaceFor(request); namespace != "" {
		key = namespace + ":" + key
	}
	return key
}

func (c *Cache) namespaceFor(request *model.GeneralOpenAIRequest) string {
	if namespace := request.MetadataString("redis_namespace"); namespace != "" {
		return namespace
	}
	if request.Cache != nil && request.Cache.Namespace != "" {
		return request.Cache.Namespace
	}
	if c == nil {
		return ""
	}
	return c.Namespace
}

// cacheModel lets models in one caching group share entries.
func cacheModel(request *model.GeneralOpenAIRequest) string {
	group := request.MetadataString("model_group")
	if group == "" {
		if deployment, ok := config.GetModelDeployment(request.Model); ok {
			group = deployment.ModelGroup
		}
	}
	lookup := group
	if lookup == "" {
		lookup = request.Model
	}
	groups := request.MetadataGroups("caching_groups")
	if len(groups) == 0 {
		groups = config.GetCachingGroups()
	}
	for _, g := range groups {
		if slices.Contains(g, lookup) {
			data, _ := json.Marshal(g)
			return string(data)
		}
	}
	if group != "" {
		return group
	}
	return request.Model
}

// paramString renders one key parameter; ok is false for unset values.
func paramString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case int:
		return strconv.Itoa(v), v != 0
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), v != 0
	case bool:
		return strconv.FormatBool(v), v
	case *float64:
		if v == nil {
			return "", false
		}
		return strconv.FormatFloat(*v, 'g', -1, 64), true
	case *int64:
		if v == nil {
			return "", false
		}
		return strconv.FormatInt(*v, 10), true
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	switch s := string(data); s {
	case "null", "[]", "{}":
		return "", false
	default:
		return s, true
	}
}

// ShouldUseCache reports whether the cache takes part in this call at all.
func (c *Cache) ShouldUseCache(request *model.GeneralOpenAIRequest, callType string) bool {
	if c == nil || !slices.Contains(c.SupportedCallTypes, callType) {
		return false
	}
	if c.Mode == ModeDefaultOff {
		return request.Cache != nil && request.Cache.UseCache
	}
	return true
}

// Get returns the cached response for request. Backend failures are logged
// and reported as a miss.
func (c *Cache) Get(ctx context.Context, request *model.GeneralOpenAIRequest, callType string) (*model.TextResponse, bool) {
	if !c.ShouldUseCache(request, callType) {
		return nil, false
	}
	if request.Cache != nil && request.Cache.NoCache {
		return nil, false
	}
	key := c.GetCacheKey(request)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		logger.Warnf(ctx, "cache get %s failed: %s", key, err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Response == nil {
		logger.Warnf(ctx, "cache entry %s is corrupt", key)
		return nil, false
	}
	if request.Cache != nil && request.Cache.SMaxAge != nil {
		age := float64(time.Now().UnixNano())/float64(time.Second) - e.Timestamp
		if age > *request.Cache.SMaxAge {
			return nil, false
		}
	}
	return e.Response, true
}

// Add stores response under the request's key.
func (c *Cache) Add(ctx context.Context, request *model.GeneralOpenAIRequest, callType string, response *model.TextResponse) error {
	if response == nil || !c.ShouldUseCache(request, callType) {
		return nil
	}
	if request.Cache != nil && request.Cache.NoStore {
		return nil
	}
	data, err := json.Marshal(entry{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Response:  response,
	})
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	key := c.GetCacheKey(request)
	if err := c.backend.Set(ctx, key, data, c.ttlFor(request)); err != nil {
		return errors.Wrapf(err, "cache set %s", key)
	}
	return nil
}

func (c *Cache) ttlFor(request *model.GeneralOpenAIRequest) time.Duration {
	if request.Cache != nil && request.Cache.TTL > 0 {
		return time.Duration(request.Cache.TTL * float64(time.Second))
	}
	return c.TTL
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache is not enabled")
	}
	return c.backend.Ping(ctx)
}

func (c *Cache) DeleteKeys(ctx context.Context, keys []string) error {
	if c == nil {
		return errors.New("cache is not enabled")
	}
	return c.backend.Delete(ctx, keys...)
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.backend.Close()
}
