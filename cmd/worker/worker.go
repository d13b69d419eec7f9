package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/queue"
	"github.com/sapplex-sz/save-me-app/internal/service"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/metrics"
	"github.com/sapplex-sz/save-me-app/pkg/otel"
	"github.com/sapplex-sz/save-me-app/pkg/sms"
	"github.com/sapplex-sz/save-me-app/pkg/snowflake"
	"github.com/sapplex-sz/save-me-app/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 告警链路依赖 SMS，初始化失败直接退出比静默吞掉告警更安全
	if err := sms.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize SMS service", zap.Error(err))
	}

	if config.Cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:    config.Cfg.ServiceName + "-worker",
			ServiceVersion: "1.0.0",
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.OTLPEndpoint,
		})
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()

		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Fatal("Failed to initialize metrics", zap.Error(err))
		}
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 消费循环在 MQ channel 关闭前一直阻塞
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := queue.StartAllConsumers(service.Activity()); err != nil {
			logger.Logger.Error("Consumer exited with error", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
