package common

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
)

var RDB redis.Cmdable
var RedisEnabled = true

// InitRedisClient connects to REDIS_CONN_STRING. Redis is optional.
func InitRedisClient() (err error) {
	if config.RedisConnString == "" {
		RedisEnabled = false
		logger.SysLog("REDIS_CONN_STRING not set, Redis is not enabled")
		return nil
	}
	logger.SysLog("Redis is enabled")
	opt, err := redis.ParseURL(config.RedisConnString)
	if err != nil {
		logger.FatalLog("failed to parse Redis connection string: " + err.Error())
	}
	RDB = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = RDB.Ping(ctx).Result()
	if err != nil {
		logger.FatalLog("Redis ping test failed: " + err.Error())
	}
	return err
}
