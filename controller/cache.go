package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/relay/model"
)

type cacheDeleteRequest struct {
	Keys []string `json:"keys" binding:"required,min=1"`
}

// PingCache checks the response cache backend.
func PingCache(c *gin.Context) {
	responseCache := completionClient.Cache()
	if err := responseCache.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"type": responseCache.Type,
		},
	})
}

// DeleteCacheKeys removes entries by their full cache key.
func DeleteCacheKeys(c *gin.Context) {
	var req cacheDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if err := completionClient.Cache().DeleteKeys(c.Request.Context(), req.Keys); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
	})
}

// GetCacheKey shows the key a completion request would be cached under.
func GetCacheKey(c *gin.Context) {
	var request model.GeneralOpenAIRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	responseCache := completionClient.Cache()
	if responseCache == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "cache is not enabled",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"key": responseCache.GetCacheKey(&request),
		},
	})
}

// GetPromptCaches lists responses whose provider prompt cache is still live.
func GetPromptCaches(c *gin.Context) {
	tracker := completionClient.PromptCache()
	if tracker == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "prompt cache tracking requires Redis",
		})
		return
	}
	entries, err := tracker.List(c.Request.Context())
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
		"data":    entries,
	})
}

func GetPromptCache(c *gin.Context) {
	tracker := completionClient.PromptCache()
	entry, err := tracker.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "no live prompt cache for this response",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    entry,
	})
}
