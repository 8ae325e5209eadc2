package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/controller"
	"github.com/songquanpeng/litegate/middleware"
	"github.com/songquanpeng/litegate/model"
	"github.com/songquanpeng/litegate/monitor"
	"github.com/songquanpeng/litegate/relay/cache"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/completion"
	"github.com/songquanpeng/litegate/router"
)

func main() {
	common.Init()
	logger.SetupLogger()
	logger.SysLogf("litegate %s started", common.Version)
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.DebugEnabled {
		logger.SysLog("running in debug mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.ModelConfigPath != "" {
		cfg, err := config.LoadModelConfig(config.ModelConfigPath)
		if err != nil {
			logger.FatalLog("failed to load model config: " + err.Error())
		}
		logger.SysLogf("loaded %d model deployments from %s", len(cfg.Models), config.ModelConfigPath)
	}

	opts := []completion.Option{completion.WithRecorder(monitor.CompletionRecorder)}

	if config.UsageLogEnabled {
		if err := model.InitDB(); err != nil {
			logger.FatalLog("failed to initialize database: " + err.Error())
		}
		defer func() {
			if err := model.CloseDB(); err != nil {
				logger.SysError("failed to close database: " + err.Error())
			}
		}()
		opts = append(opts, completion.WithRecorder(model.UsageLogRecorder))
		if config.UsageLogRetentionDays > 0 {
			cleaner, err := model.StartUsageLogCleaner(config.UsageLogRetentionDays)
			if err != nil {
				logger.FatalLog("failed to start usage log cleaner: " + err.Error())
			}
			defer cleaner.Stop()
		}
	}

	if err := common.InitRedisClient(); err != nil {
		logger.FatalLog("failed to initialize Redis: " + err.Error())
	}

	if config.CacheEnabled {
		responseCache, err := cache.New(ctx, cache.ConfigFromEnv(common.RDB))
		if err != nil {
			logger.FatalLog("failed to initialize response cache: " + err.Error())
		}
		defer responseCache.Close()
		logger.SysLogf("response cache enabled (type: %s, mode: %s)", responseCache.Type, responseCache.Mode)
		opts = append(opts, completion.WithCache(responseCache))
	}
	if config.PromptCacheTrackingEnabled && common.RedisEnabled {
		opts = append(opts, completion.WithPromptCacheTracker(cache.NewPromptCacheTracker(common.RDB)))
		logger.SysLog("prompt cache tracking enabled")
	}
	controller.SetCompletionClient(completion.NewClient(opts...))

	openai.InitTokenEncoders()

	if err := monitor.StartCloudWatchReporter(ctx); err != nil {
		logger.SysError("failed to start CloudWatch reporter: " + err.Error())
	}
	defer monitor.StopCloudWatchReporter()

	server := gin.New()
	server.Use(gin.Recovery())
	server.Use(middleware.RequestId())
	middleware.SetUpLogger(server)
	router.SetRouter(server)

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalLog("failed to start HTTP server: " + err.Error())
		}
	}()
	logger.SysLogf("listening on :%s", port)

	<-ctx.Done()
	logger.SysLog("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.SysError("server shutdown failed: " + err.Error())
	}
}
