package schedule

// 活动补偿调度器：定期扫描 deadline 已过期但延迟消息丢失的活动，补发检查消息。
// 延迟消息通道（MQ 重启、消息丢弃）出问题时由它兜底，检查本身幂等。

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/cache"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/queue"
	"github.com/sapplex-sz/save-me-app/internal/repository"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/storage/database"
)

const overdueScanBatchSize = 200

// OverdueLister 过期活动查询接口
type OverdueLister interface {
	ListOverdueActive(ctx context.Context, grace time.Duration, limit int) ([]*model.Activity, error)
}

// CheckPublisher 检查消息的补发接口
type CheckPublisher interface {
	ScheduleCheck(activityID string, deadline time.Time, delay time.Duration) error
}

var (
	activitySchedulerOnce sync.Once
	activitySchedulerInst *ActivityScheduler
)

// ActivityScheduler 活动补偿调度器
type ActivityScheduler struct {
	activities OverdueLister
	publisher  CheckPublisher
	logger     *zap.Logger

	scanRunning  bool
	scanMu       sync.Mutex
	lastScanTime time.Time
}

// GetActivityScheduler 获取活动补偿调度器单例
func GetActivityScheduler() *ActivityScheduler {
	activitySchedulerOnce.Do(func() {
		activitySchedulerInst = &ActivityScheduler{
			activities: repository.NewActivityRepository(database.DB()),
			publisher:  queue.NewDeadlineProducer(),
			logger:     logger.Logger,
		}
	})
	return activitySchedulerInst
}

func NewActivityScheduler(activities OverdueLister, publisher CheckPublisher) *ActivityScheduler {
	return &ActivityScheduler{
		activities: activities,
		publisher:  publisher,
		logger:     logger.Logger,
	}
}

// CheckOverdueActivities 扫描超期未触发告警的 active 活动并补发检查消息。
// grace 为宽限期，deadline 过期不足 grace 的活动留给正常的延迟消息处理。
func (s *ActivityScheduler) CheckOverdueActivities(ctx context.Context) error {
	s.scanMu.Lock()
	if s.scanRunning {
		s.scanMu.Unlock()
		s.logger.Info("Overdue activity scan already running, skipping")
		return nil
	}
	s.scanRunning = true
	s.scanMu.Unlock()

	defer func() {
		s.scanMu.Lock()
		s.scanRunning = false
		s.scanMu.Unlock()
	}()

	s.lastScanTime = time.Now()
	grace := time.Duration(config.Cfg.OverdueGraceMinutes) * time.Minute

	activities, err := s.activities.ListOverdueActive(ctx, grace, overdueScanBatchSize)
	if err != nil {
		s.logger.Error("Failed to query overdue activities", zap.Error(err))
		return fmt.Errorf("failed to query overdue activities: %w", err)
	}

	if len(activities) == 0 {
		return nil
	}

	s.logger.Warn("Found overdue activities missed by delayed messages",
		zap.Int("count", len(activities)),
		zap.Duration("grace", grace),
	)

	republished := 0
	for _, activity := range activities {
		// 相邻两轮扫描之间不重复补发
		first, err := cache.TryMarkOverdueScanned(ctx, activity.PublicID)
		if err != nil {
			s.logger.Warn("Failed to mark overdue activity as scanned",
				zap.String("activity_id", activity.PublicID),
				zap.Error(err),
			)
		} else if !first {
			continue
		}

		if err := s.publisher.ScheduleCheck(activity.PublicID, activity.NextCheckInDeadline, 0); err != nil {
			s.logger.Error("Failed to republish deadline check",
				zap.String("activity_id", activity.PublicID),
				zap.Error(err),
			)
			continue
		}
		republished++
	}

	s.logger.Info("Overdue activity scan finished",
		zap.Int("scanned", len(activities)),
		zap.Int("republished", republished),
	)
	return nil
}

// StartOverdueScanLoop 用 gocron 周期性运行补偿扫描，阻塞到 ctx 取消
func (s *ActivityScheduler) StartOverdueScanLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.OverdueScanIntervalMinutes) * time.Minute
	if config.Cfg.IsDevelopment() {
		interval = 1 * time.Minute
		s.logger.Info("Overdue scan loop running in development mode with 1m interval")
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := s.CheckOverdueActivities(runCtx); err != nil {
			s.logger.Error("Overdue activity scan run failed", zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Error("Failed to schedule overdue scan job", zap.Error(err))
		return
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
}
