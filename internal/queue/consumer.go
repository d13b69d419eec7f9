package queue

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/internal/cache"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/storage/mq"
)

// DeadlineChecker 超时检查的业务入口，由活动服务实现
type DeadlineChecker interface {
	CheckDeadline(ctx context.Context, activityID string) error
}

// StartDeadlineCheckConsumer 消费延迟到期的超时检查消息。
// 阻塞运行，通常放在独立 goroutine 或 worker 进程里。
func StartDeadlineCheckConsumer(checker DeadlineChecker) error {
	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.DeadlineCheckQueue,
		ConsumerTag:   "deadline-check-worker",
		PrefetchCount: 16,
		Handler: func(body []byte) error {
			return handleDeadlineCheck(checker, body)
		},
	})
}

func handleDeadlineCheck(checker DeadlineChecker, body []byte) error {
	var msg struct {
		MessageID        string `json:"message_id"`
		ActivityID       string `json:"activity_id"`
		DeadlineSnapshot string `json:"deadline_snapshot"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return &pkgerrors.SkipMessageError{Reason: "malformed deadline check message"}
	}
	if msg.ActivityID == "" {
		return &pkgerrors.SkipMessageError{Reason: "deadline check message missing activity id"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// SETNX 去重，同一条消息被重复投递时只处理一次
	if msg.MessageID != "" {
		first, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 0)
		if err != nil {
			return err
		}
		if !first {
			return &pkgerrors.SkipMessageError{Reason: "duplicate deadline check message"}
		}
	}

	if err := checker.CheckDeadline(ctx, msg.ActivityID); err != nil {
		// 处理失败时解除标记，让重投的消息可以重试
		if msg.MessageID != "" {
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message after error",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
		}
		return err
	}

	if msg.MessageID != "" {
		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 0); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// StartAllConsumers 启动全部消费者，任一消费者退出即返回
func StartAllConsumers(checker DeadlineChecker) error {
	return StartDeadlineCheckConsumer(checker)
}
