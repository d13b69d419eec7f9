package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/snowflake"
	"github.com/sapplex-sz/save-me-app/storage/mq"
)

// DeadlineProducer 发布延迟的活动超时检查任务
type DeadlineProducer struct{}

func NewDeadlineProducer() *DeadlineProducer {
	return &DeadlineProducer{}
}

// ScheduleCheck 在 delay 之后投递一条针对 activityID 的超时检查消息。
// 消息只携带活动 ID 和用于观测的 deadline 快照，消费端以数据库最新状态为准，
// 过期任务落地后会被消费端判定为无效并丢弃。
func (p *DeadlineProducer) ScheduleCheck(activityID string, deadline time.Time, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	id, err := snowflake.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	msg := model.DeadlineCheckMessage{
		MessageID:        fmt.Sprintf("deadline_check_%d", id),
		ActivityID:       activityID,
		DeadlineSnapshot: deadline.Format(time.RFC3339),
		ScheduledAt:      time.Now().Format(time.RFC3339),
		DelaySeconds:     int(delay.Seconds()),
	}

	if err := mq.PublishDelayedMessage(mq.DelayedExchange, mq.DeadlineCheckQueue, delay, msg); err != nil {
		return fmt.Errorf("failed to publish deadline check: %w", err)
	}

	logger.Logger.Debug("Deadline check scheduled",
		zap.String("message_id", msg.MessageID),
		zap.String("activity_id", activityID),
		zap.Time("deadline", deadline),
		zap.Duration("delay", delay),
	)

	return nil
}
