package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/model"
)

func usageLogFilter(c *gin.Context) model.UsageLogFilter {
	filter := model.UsageLogFilter{
		ModelName: c.Query("model"),
		Provider:  c.Query("provider"),
	}
	if filter.ModelName == "" {
		filter.ModelName = c.Query("model_name")
	}
	filter.StartTimestamp, _ = strconv.ParseInt(c.Query("start_timestamp"), 10, 64)
	filter.EndTimestamp, _ = strconv.ParseInt(c.Query("end_timestamp"), 10, 64)
	if v, err := strconv.ParseBool(c.Query("stream")); err == nil {
		filter.IsStream = &v
	}
	if v, err := strconv.ParseBool(c.Query("cache_hit")); err == nil {
		filter.CacheHit = &v
	}
	if v, err := strconv.ParseBool(c.Query("failed")); err == nil {
		filter.Failed = &v
	}
	return filter
}

func usageLogUnavailable(c *gin.Context) bool {
	if model.DB != nil {
		return false
	}
	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"message": "usage log is not enabled",
	})
	return true
}

func GetUsageLogs(c *gin.Context) {
	if usageLogUnavailable(c) {
		return
	}
	p, _ := strconv.Atoi(c.Query("p"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize <= 0 {
		pageSize = config.ItemsPerPage
	}
	pageSize = min(pageSize, config.MaxItemsPerPage)
	logs, total, err := model.GetUsageLogs(usageLogFilter(c), p, pageSize)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    logs,
		"total":   total,
	})
}

func GetUsageStat(c *gin.Context) {
	if usageLogUnavailable(c) {
		return
	}
	stats, err := model.SumUsage(usageLogFilter(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    stats,
	})
}
