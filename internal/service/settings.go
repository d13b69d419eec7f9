package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/repository"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/storage/database"
)

// maskedValue 返回给管理后台的密钥占位符
const maskedValue = "******"

// SenderAdminStore 发件账号管理接口
type SenderAdminStore interface {
	List(ctx context.Context) ([]*model.EmailSender, error)
	Create(ctx context.Context, sender *model.EmailSender) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// SettingAdminStore 配置项管理接口
type SettingAdminStore interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

// SettingsService 管理后台的系统配置与发件池管理
type SettingsService struct {
	settings SettingAdminStore
	senders  SenderAdminStore
	emails   EmailSender
}

var (
	settingsService *SettingsService
	settingsOnce    sync.Once
)

func Settings() *SettingsService {
	settingsOnce.Do(func() {
		db := database.DB()
		settingsService = NewSettingsService(
			repository.NewSettingRepository(db),
			repository.NewSenderRepository(db),
			Senders(),
		)
	})
	return settingsService
}

func NewSettingsService(settings SettingAdminStore, senders SenderAdminStore, emails EmailSender) *SettingsService {
	return &SettingsService{
		settings: settings,
		senders:  senders,
		emails:   emails,
	}
}

// GetSettings 返回全部配置项，密钥类的值做掩码
func (s *SettingsService) GetSettings(ctx context.Context) (map[string]string, error) {
	all, err := s.settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	for key, value := range all {
		if value != "" && isSecretKey(key) {
			all[key] = maskedValue
		}
	}
	return all, nil
}

// UpdateSettings 批量更新配置项，掩码占位符不会覆盖原值
func (s *SettingsService) UpdateSettings(ctx context.Context, req model.UpdateSettingsRequest) error {
	for key, value := range req {
		if value == maskedValue {
			continue
		}
		if err := s.settings.Upsert(ctx, key, value); err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
	}

	logger.Logger.Info("Settings updated",
		zap.Int("count", len(req)),
	)
	return nil
}

// ListSenders 返回发件池全部账号
func (s *SettingsService) ListSenders(ctx context.Context) ([]*model.EmailSender, error) {
	senders, err := s.senders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list senders: %w", err)
	}
	return senders, nil
}

// CreateSender 新增发件账号，默认启用
func (s *SettingsService) CreateSender(ctx context.Context, req *model.CreateEmailSenderRequest) (*model.EmailSender, error) {
	if req.Username == "" || req.Host == "" {
		return nil, fmt.Errorf("sender username and host are required")
	}

	port := req.Port
	if port == 0 {
		port = 465
	}

	sender := &model.EmailSender{
		Host:     req.Host,
		Port:     port,
		Secure:   req.Secure,
		Username: req.Username,
		Password: req.Password,
		IsActive: true,
	}
	if err := s.senders.Create(ctx, sender); err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	logger.Logger.Info("Email sender created",
		zap.String("username", sender.Username),
		zap.String("host", sender.Host),
	)
	return sender, nil
}

// ToggleSender 启用或禁用发件账号
func (s *SettingsService) ToggleSender(ctx context.Context, id int64, active bool) error {
	if err := s.senders.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to toggle sender: %w", err)
	}
	return nil
}

// DeleteSender 删除发件账号
func (s *SettingsService) DeleteSender(ctx context.Context, id int64) error {
	if err := s.senders.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete sender: %w", err)
	}
	return nil
}

// TestConnection 客户端自检：网络、GPS、邮件链路
func (s *SettingsService) TestConnection(ctx context.Context, req *model.TestConnectionRequest) *model.TestConnectionResult {
	result := &model.TestConnectionResult{
		Network:   "ok",
		GPS:       "missing",
		Email:     "pending",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if req.Latitude != nil && req.Longitude != nil {
		result.GPS = "ok"
	}

	if req.Email != "" {
		err := s.emails.Send(ctx, req.Email,
			"【连接测试】救救我 App",
			"<p>这是一封连接测试邮件，收到说明邮件告警链路工作正常。</p>")
		if err != nil {
			logger.Logger.Warn("Test connection email failed",
				zap.String("to", req.Email),
				zap.Error(err),
			)
			result.Email = "failed"
		} else {
			result.Email = "ok"
		}
	}

	return result
}

func isSecretKey(key string) bool {
	return strings.Contains(key, "PASS") || strings.Contains(key, "SECRET")
}
