package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/queue"
	"github.com/sapplex-sz/save-me-app/internal/repository"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/metrics"
	"github.com/sapplex-sz/save-me-app/storage/database"
)

// ActivityStore 活动持久化接口
type ActivityStore interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.Activity, error)
	GetMostRecentByPhone(ctx context.Context, phone string) (*model.Activity, error)
	GetActiveByPhone(ctx context.Context, phone string) (*model.Activity, error)
	Save(ctx context.Context, activity *model.Activity) error
	MarkAlarmed(ctx context.Context, publicID string, now time.Time) (bool, error)
	AppendCheckIn(ctx context.Context, checkIn *model.CheckIn) error
}

// UserStore 用户档案接口，开启活动时用于补全默认参数
type UserStore interface {
	EnsureByPhone(ctx context.Context, phone string) (*model.User, error)
}

// DeadlineScheduler 延迟检查任务的投递接口
type DeadlineScheduler interface {
	ScheduleCheck(activityID string, deadline time.Time, delay time.Duration) error
}

// AlarmDispatcher 告警分发接口
type AlarmDispatcher interface {
	Dispatch(ctx context.Context, activity *model.Activity)
}

// ActivityService 活动状态机。所有状态迁移都在这里完成：
// start 创建 active，报平安推后 deadline，end 进入 finished 终态，
// CheckDeadline 在延迟任务到期时用数据库里的最新状态重新判定是否真的超时。
type ActivityService struct {
	store      ActivityStore
	users      UserStore
	scheduler  DeadlineScheduler
	dispatcher AlarmDispatcher

	// now 可注入的时钟，测试用
	now func() time.Time
}

var (
	activityService *ActivityService
	activityOnce    sync.Once
)

func Activity() *ActivityService {
	activityOnce.Do(func() {
		db := database.DB()
		activityService = NewActivityService(
			repository.NewActivityRepository(db),
			repository.NewUserRepository(db),
			queue.NewDeadlineProducer(),
			Alarm(),
		)
	})
	return activityService
}

func NewActivityService(store ActivityStore, users UserStore, scheduler DeadlineScheduler, dispatcher AlarmDispatcher) *ActivityService {
	return &ActivityService{
		store:      store,
		users:      users,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Start 开启一次新活动。同一手机号已有的 active 活动会被软关闭，
// 60 秒内重复开启会被限频拒绝。
func (s *ActivityService) Start(ctx context.Context, req *model.StartActivityRequest) (*model.Activity, error) {
	now := s.now()

	recent, err := s.store.GetMostRecentByPhone(ctx, req.PhoneNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}
	if recent != nil {
		minInterval := time.Duration(config.Cfg.StartMinIntervalSeconds) * time.Second
		if now.Sub(recent.CreatedAt) < minInterval {
			return nil, pkgerrors.ActivityRateLimited
		}
	}

	// 同手机号同时只保留一个进行中的活动
	if current, err := s.store.GetActiveByPhone(ctx, req.PhoneNumber); err == nil {
		current.Status = model.ActivityStatusFinished
		if err := s.store.Save(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to close previous activity: %w", err)
		}
		metrics.SubtractActiveActivity()
		logger.Logger.Info("Closed previous active activity",
			zap.String("activity_id", current.PublicID),
			zap.String("phone", req.PhoneNumber),
		)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query active activity: %w", err)
	}

	var userID *int64
	interval := req.IntervalMinutes
	warning := 5
	if req.WarningMinutes != nil {
		warning = *req.WarningMinutes
	}
	if s.users != nil {
		user, err := s.users.EnsureByPhone(ctx, req.PhoneNumber)
		if err != nil {
			logger.Logger.Warn("Failed to resolve user profile",
				zap.String("phone", req.PhoneNumber),
				zap.Error(err),
			)
		} else {
			userID = &user.ID
			if interval <= 0 {
				interval = user.DefaultIntervalMinute
			}
			if req.WarningMinutes == nil {
				warning = user.DefaultWarningMinutes
			}
		}
	}
	if interval <= 0 {
		return nil, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "interval_minutes must be positive"}
	}

	tolerance := 5
	if req.ToleranceMinutes != nil {
		tolerance = *req.ToleranceMinutes
	}

	language := req.Language
	if language != "en" {
		language = "zh"
	}

	activity := &model.Activity{
		PublicID:               uuid.NewString(),
		PhoneNumber:            req.PhoneNumber,
		UserName:               req.UserName,
		Language:               language,
		UserID:                 userID,
		EmergencyContactPhone:  req.ContactPhone,
		EmergencyContactEmail:  req.ContactEmail,
		SecondaryContactPhone:  req.SecondaryContactPhone,
		SecondaryContactEmail:  req.SecondaryContactEmail,
		ActivityName:           req.ActivityName,
		Description:            req.Description,
		EmergencyInstructions:  req.EmergencyInstructions,
		LastLatitude:           req.LastLatitude,
		LastLongitude:          req.LastLongitude,
		CheckInIntervalMinutes: interval,
		ToleranceMinutes:       tolerance,
		WarningMinutes:         warning,
		Status:                 model.ActivityStatusActive,
	}
	activity.NextCheckInDeadline = activity.ComputeDeadline(now)

	if err := s.store.Save(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to persist activity: %w", err)
	}

	s.scheduleCheck(activity, now)
	metrics.AddActiveActivity()

	logger.Logger.Info("Activity started",
		zap.String("activity_id", activity.PublicID),
		zap.String("phone", activity.PhoneNumber),
		zap.Int("interval_minutes", interval),
		zap.Time("deadline", activity.NextCheckInDeadline),
	)

	return activity, nil
}

// ReportSafe 报平安。推后 deadline，alarmed 状态会被恢复为 active。
func (s *ActivityService) ReportSafe(ctx context.Context, publicID string, req *model.ReportSafeRequest) (*model.ReportSafeResult, error) {
	activity, err := s.store.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ActivityNotFound
		}
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	if !activity.IsHeartbeatAllowed() {
		return nil, pkgerrors.ActivityNotActive
	}

	now := s.now()
	recovered := activity.Status == model.ActivityStatusAlarmed

	activity.Status = model.ActivityStatusActive
	activity.IsWarned = false
	activity.NextCheckInDeadline = activity.ComputeDeadline(now)
	if req.Latitude != nil {
		activity.LastLatitude = req.Latitude
	}
	if req.Longitude != nil {
		activity.LastLongitude = req.Longitude
	}
	if req.BatteryLevel != nil {
		activity.BatteryLevel = req.BatteryLevel
	}

	if err := s.store.Save(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to persist heartbeat: %w", err)
	}

	// 没有坐标的心跳不写历史，避免 (0,0) 采样污染轨迹
	if req.Latitude != nil && req.Longitude != nil {
		checkIn := &model.CheckIn{
			ActivityID:   activity.ID,
			Latitude:     *req.Latitude,
			Longitude:    *req.Longitude,
			BatteryLevel: req.BatteryLevel,
		}
		if err := s.store.AppendCheckIn(ctx, checkIn); err != nil {
			logger.Logger.Warn("Failed to append check-in record",
				zap.String("activity_id", activity.PublicID),
				zap.Error(err),
			)
		}
	}

	s.scheduleCheck(activity, now)

	if recovered {
		metrics.AddActiveActivity()
		logger.Logger.Info("Activity recovered from alarmed state",
			zap.String("activity_id", activity.PublicID),
		)
	}

	return &model.ReportSafeResult{
		Status:       string(activity.Status),
		NextDeadline: activity.NextCheckInDeadline,
	}, nil
}

// End 结束活动，finished 是终态。活动不存在时是幂等的 no-op。
func (s *ActivityService) End(ctx context.Context, publicID string) (*model.Activity, error) {
	activity, err := s.store.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Logger.Info("End requested for unknown activity, nothing to do",
				zap.String("activity_id", publicID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	if activity.Status == model.ActivityStatusFinished {
		return activity, nil
	}

	wasActive := activity.Status == model.ActivityStatusActive
	activity.Status = model.ActivityStatusFinished
	if err := s.store.Save(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to persist activity: %w", err)
	}

	if wasActive {
		metrics.SubtractActiveActivity()
	}

	logger.Logger.Info("Activity ended",
		zap.String("activity_id", activity.PublicID),
	)

	return activity, nil
}

// GetCurrent 查询某手机号当前进行中的活动
func (s *ActivityService) GetCurrent(ctx context.Context, phone string) (*model.Activity, error) {
	activity, err := s.store.GetActiveByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ActivityNotFound
		}
		return nil, fmt.Errorf("failed to query active activity: %w", err)
	}
	return activity, nil
}

// CheckDeadline 延迟任务到期后的核心判定。
// 消息里的状态可能早已过时，这里永远以数据库的最新状态为准：
// 报平安推后了 deadline 的旧任务、已结束活动的旧任务都会在此变成 no-op。
// 条件更新保证并发的重复检查中只有一个会真正触发告警。
func (s *ActivityService) CheckDeadline(ctx context.Context, activityID string) error {
	activity, err := s.store.GetByPublicID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Logger.Warn("Deadline check for unknown activity, skipping",
				zap.String("activity_id", activityID),
			)
			metrics.RecordDeadlineCheck("skipped")
			return nil
		}
		return fmt.Errorf("failed to load activity: %w", err)
	}

	if activity.Status != model.ActivityStatusActive {
		logger.Logger.Debug("Activity no longer active, skipping deadline check",
			zap.String("activity_id", activityID),
			zap.String("status", string(activity.Status)),
		)
		metrics.RecordDeadlineCheck("skipped")
		return nil
	}

	now := s.now()
	if !now.After(activity.NextCheckInDeadline) {
		// 报平安把 deadline 推后了，这个任务已经失效
		logger.Logger.Debug("Deadline moved forward, stale check is a no-op",
			zap.String("activity_id", activityID),
			zap.Time("deadline", activity.NextCheckInDeadline),
		)
		metrics.RecordDeadlineCheck("still_valid")
		return nil
	}

	won, err := s.store.MarkAlarmed(ctx, activityID, now)
	if err != nil {
		return fmt.Errorf("failed to mark activity alarmed: %w", err)
	}
	if !won {
		// 并发检查或并发报平安抢先改了状态
		metrics.RecordDeadlineCheck("skipped")
		return nil
	}

	activity.Status = model.ActivityStatusAlarmed
	metrics.RecordDeadlineCheck("triggered")
	metrics.SubtractActiveActivity()

	logger.Logger.Error("Activity deadline missed, triggering alarm",
		zap.String("activity_id", activityID),
		zap.Time("missed_deadline", activity.NextCheckInDeadline),
	)

	s.dispatcher.Dispatch(ctx, activity)
	return nil
}

func (s *ActivityService) scheduleCheck(activity *model.Activity, now time.Time) {
	delay := activity.NextCheckInDeadline.Sub(now)
	if err := s.scheduler.ScheduleCheck(activity.PublicID, activity.NextCheckInDeadline, delay); err != nil {
		// 投递失败不阻塞主流程，补偿扫描会兜底
		logger.Logger.Error("Failed to schedule deadline check",
			zap.String("activity_id", activity.PublicID),
			zap.Error(err),
		)
	}
}
