package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/internal/model"
)

// SenderRepository 邮件发送账号池的读写入口
type SenderRepository struct {
	db *gorm.DB
}

func NewSenderRepository(db *gorm.DB) *SenderRepository {
	return &SenderRepository{db: db}
}

// ListActive 按创建顺序返回所有启用中的发送账号
func (r *SenderRepository) ListActive(ctx context.Context) ([]*model.EmailSender, error) {
	var senders []*model.EmailSender
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&senders).Error
	if err != nil {
		return nil, err
	}
	return senders, nil
}

func (r *SenderRepository) List(ctx context.Context) ([]*model.EmailSender, error) {
	var senders []*model.EmailSender
	err := r.db.WithContext(ctx).Order("id ASC").Find(&senders).Error
	if err != nil {
		return nil, err
	}
	return senders, nil
}

func (r *SenderRepository) Create(ctx context.Context, sender *model.EmailSender) error {
	return r.db.WithContext(ctx).Create(sender).Error
}

// RecordSuccess 成功计数加一，数据库侧原子累加
func (r *SenderRepository) RecordSuccess(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.EmailSender{}).
		Where("id = ?", id).
		Update("success_count", gorm.Expr("success_count + 1")).Error
}

// RecordFailure 失败计数加一
func (r *SenderRepository) RecordFailure(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.EmailSender{}).
		Where("id = ?", id).
		Update("fail_count", gorm.Expr("fail_count + 1")).Error
}

// SetActive 启用或停用某个发送账号
func (r *SenderRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.EmailSender{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *SenderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.EmailSender{}).Error
}
