package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
)

func GetStatus(c *gin.Context) {
	responseCache := completionClient.Cache()
	cacheStatus := gin.H{"enabled": responseCache != nil}
	if responseCache != nil {
		cacheStatus["type"] = responseCache.Type
		cacheStatus["mode"] = responseCache.Mode
		cacheStatus["namespace"] = responseCache.Namespace
		cacheStatus["ttl"] = responseCache.TTL.Seconds()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"version":              common.Version,
			"start_time":           common.StartTime,
			"system_name":          config.SystemName,
			"instance_id":          config.InstanceId,
			"redis":                common.RedisEnabled,
			"usage_log":            config.UsageLogEnabled,
			"prompt_cache_tracked": completionClient.PromptCache() != nil,
			"cache":                cacheStatus,
		},
	})
}
