package config

import (
	"os"
	"strings"
	"time"

	"github.com/songquanpeng/litegate/common/env"
)

var SystemName = "litegate"
var ServiceName = env.String("SERVICE_NAME", "litegate")
var InstanceId = getInstanceId()

func getInstanceId() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

var DebugEnabled = strings.ToLower(os.Getenv("DEBUG")) == "true"
var DebugSQLEnabled = strings.ToLower(os.Getenv("DEBUG_SQL")) == "true"

// Relay

var RelayTimeout = env.Int("RELAY_TIMEOUT", 0) // unit is second
var RelayProxy = env.String("RELAY_PROXY", "")
var RetryTimes = env.Int("RETRY_TIMES", 0)

// StreamPingInterval sends ": PING" comments on idle streams, 0 disables it. Unit is second.
var StreamPingInterval = env.Int("STREAM_PING_INTERVAL", 0)

// MaxRequestBodyMB caps relay request bodies, 0 means no limit.
var MaxRequestBodyMB = env.Int("MAX_REQUEST_BODY_MB", 32)
var ApproximateTokenEnabled = env.Bool("APPROXIMATE_TOKEN_ENABLED", false)

// ModelConfigPath points at the optional YAML model deployment table.
var ModelConfigPath = env.String("MODEL_CONFIG_PATH", "")

// Providers

var OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
var OpenAIBaseURL = env.String("OPENAI_BASE_URL", "https://api.openai.com")
var OpenAIOrganization = os.Getenv("OPENAI_ORGANIZATION")

var AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
var AnthropicBaseURL = env.String("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
var AnthropicVersion = env.String("ANTHROPIC_VERSION", "2023-06-01")
var AnthropicBeta = os.Getenv("ANTHROPIC_BETA")

var DeepseekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
var DeepseekBaseURL = env.String("DEEPSEEK_BASE_URL", "https://api.deepseek.com")

// Bedrock falls back to the default AWS credential chain when no keys are set.
var BedrockRegion = env.String("BEDROCK_REGION", "us-east-1")
var BedrockEndpoint = os.Getenv("BEDROCK_ENDPOINT")
var BedrockAccessKey = os.Getenv("BEDROCK_ACCESS_KEY_ID")
var BedrockSecretKey = os.Getenv("BEDROCK_SECRET_ACCESS_KEY")

// Response cache

var CacheEnabled = env.Bool("CACHE_ENABLED", false)
var CacheType = env.String("CACHE_TYPE", "local") // local, redis, s3, disk
var CacheMode = env.String("CACHE_MODE", "default_on")
var CacheNamespace = env.String("CACHE_NAMESPACE", "")
var CacheTTL = env.Duration("CACHE_TTL", 0)
var CacheDefaultInMemoryTTL = env.Duration("CACHE_DEFAULT_IN_MEMORY_TTL", 0)
var CacheDefaultInRedisTTL = env.Duration("CACHE_DEFAULT_IN_REDIS_TTL", 0)
var CacheMaxItems = env.Int("CACHE_MAX_ITEMS", 1024)
var CacheSupportedCallTypes = env.List("CACHE_SUPPORTED_CALL_TYPES")
var CacheDiskDir = env.String("CACHE_DISK_DIR", "./cache")

var CacheS3Bucket = os.Getenv("CACHE_S3_BUCKET")
var CacheS3Region = env.String("CACHE_S3_REGION", "auto")
var CacheS3Endpoint = os.Getenv("CACHE_S3_ENDPOINT")
var CacheS3AccessKey = os.Getenv("CACHE_S3_ACCESS_KEY")
var CacheS3SecretKey = os.Getenv("CACHE_S3_SECRET_KEY")
var CacheS3SessionToken = os.Getenv("CACHE_S3_SESSION_TOKEN")
var CacheS3Path = os.Getenv("CACHE_S3_PATH")

// PromptCacheTrackingEnabled remembers which provider holds a live prompt cache.
// Requires Redis.
var PromptCacheTrackingEnabled = env.Bool("PROMPT_CACHE_TRACKING_ENABLED", true)

// Storage

var SQLDSN = os.Getenv("SQL_DSN")
var SQLitePath = env.String("SQLITE_PATH", "litegate.db")
var SQLMaxIdleConns = env.Int("SQL_MAX_IDLE_CONNS", 100)
var SQLMaxOpenConns = env.Int("SQL_MAX_OPEN_CONNS", 1000)
var SQLMaxLifetime = env.Int("SQL_MAX_LIFETIME", 60) // unit is second

var RedisConnString = os.Getenv("REDIS_CONN_STRING")

var UsageLogEnabled = env.Bool("USAGE_LOG_ENABLED", true)
var UsageLogRetentionDays = env.Int("USAGE_LOG_RETENTION_DAYS", 30)

// Server

var AccessKeys = env.List("ACCESS_KEYS")
var MetricsEnabled = env.Bool("METRICS_ENABLED", true)

// SwaggerEnabled serves the API docs UI at /swagger/index.html. SwaggerJSONURL
// points the UI at an external document instead of the built-in one.
var SwaggerEnabled = env.Bool("SWAGGER_ENABLED", true)
var SwaggerJSONURL = os.Getenv("SWAGGER_JSON_URL")

var CloudWatchEnabled = env.Bool("CLOUDWATCH_ENABLED", false)
var CloudWatchRegion = env.String("CLOUDWATCH_REGION", "us-east-1")
var CloudWatchNamespace = env.String("CLOUDWATCH_NAMESPACE", "Litegate")
var CloudWatchFlushInterval = env.Int("CLOUDWATCH_FLUSH_INTERVAL", 60) // unit is second
var ItemsPerPage = 10
var MaxItemsPerPage = 100

var ShutdownTimeout = 10 * time.Second
