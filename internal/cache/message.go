package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sapplex-sz/save-me-app/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	overdueScannedPrefix   = "overdue:scanned"

	processedTTL = 48 * time.Hour
	scannedTTL   = 30 * time.Minute
)

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// TryMarkOverdueScanned 标记某个活动已被补偿扫描补发过检查消息，
// 避免相邻两轮扫描重复补发（检查本身是幂等的，这里只是减少噪音）
func TryMarkOverdueScanned(ctx context.Context, activityID string) (bool, error) {
	key := redis.Key(overdueScannedPrefix, activityID)

	result, err := redis.Client().SetNX(ctx, key, "1", scannedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark overdue activity as scanned: %w", err)
	}
	return result, nil
}
