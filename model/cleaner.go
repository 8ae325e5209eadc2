package model

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/songquanpeng/litegate/common/logger"
)

// StartUsageLogCleaner deletes usage logs older than retentionDays once a
// day. The returned cron must be stopped on shutdown.
func StartUsageLogCleaner(retentionDays int) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		cleanUsageLogs(retentionDays)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func cleanUsageLogs(retentionDays int) int64 {
	target := time.Now().AddDate(0, 0, -retentionDays).Unix()
	deleted, err := DeleteOldUsageLogs(target)
	if err != nil {
		logger.SysError("failed to delete old usage logs: " + err.Error())
		return 0
	}
	logger.SysLogf("deleted %d usage logs older than %d days", deleted, retentionDays)
	return deleted
}
