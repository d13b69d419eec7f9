package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/internal/model"
)

// ActivityRepository 活动表的读写入口
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetByPublicID 根据对外 ID 查询活动，未找到返回 gorm.ErrRecordNotFound
func (r *ActivityRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetMostRecentByPhone 查询某手机号最近创建的活动（无论状态），用于限频判断
func (r *ActivityRepository) GetMostRecentByPhone(ctx context.Context, phone string) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetActiveByPhone 查询某手机号当前进行中的活动
func (r *ActivityRepository) GetActiveByPhone(ctx context.Context, phone string) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Where("phone_number = ? AND status = ?", phone, model.ActivityStatusActive).
		Order("created_at DESC").
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Save 插入或更新活动
func (r *ActivityRepository) Save(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

// MarkAlarmed 条件更新：只有状态仍为 active 且 deadline 已过期时才置为 alarmed。
// 返回 true 表示本次调用赢得了状态迁移；并发的重复检查只会有一个返回 true。
func (r *ActivityRepository) MarkAlarmed(ctx context.Context, publicID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("public_id = ? AND status = ? AND next_check_in_deadline < ?",
			publicID, model.ActivityStatusActive, now).
		Updates(map[string]interface{}{
			"status":     model.ActivityStatusAlarmed,
			"updated_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AppendCheckIn 追加一条报平安位置记录
func (r *ActivityRepository) AppendCheckIn(ctx context.Context, checkIn *model.CheckIn) error {
	return r.db.WithContext(ctx).Create(checkIn).Error
}

// ListOverdueActive 查询 deadline 已超过 grace 时长、状态仍为 active 的活动，
// 供补偿扫描补发检查消息
func (r *ActivityRepository) ListOverdueActive(ctx context.Context, grace time.Duration, limit int) ([]*model.Activity, error) {
	var activities []*model.Activity
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_check_in_deadline < ?",
			model.ActivityStatusActive, time.Now().Add(-grace)).
		Order("next_check_in_deadline ASC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
