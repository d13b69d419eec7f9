package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/schedule"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/snowflake"
	"github.com/sapplex-sz/save-me-app/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 补偿扫描重新投递检查消息，需要 snowflake 生成 message_id
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	schedule.GetActivityScheduler().StartOverdueScanLoop(ctx)

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
