package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/repository"
	"github.com/sapplex-sz/save-me-app/pkg/email"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/metrics"
	"github.com/sapplex-sz/save-me-app/storage/database"
)

// SenderStore 发件账号池的持久化接口
type SenderStore interface {
	ListActive(ctx context.Context) ([]*model.EmailSender, error)
	Create(ctx context.Context, sender *model.EmailSender) error
	RecordSuccess(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64) error
}

// SettingStore 系统配置的读取接口
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// SenderPool 邮件发送账号池，轮询选择账号并在失败时切换到下一个。
// 每个账号每次投递最多尝试一次，所有账号都失败才算失败。
type SenderPool struct {
	senders   SenderStore
	settings  SettingStore
	transport email.Transport

	// counter 轮询起点，跨投递递增以分摊账号压力
	counter atomic.Uint64
}

var (
	senderPool     *SenderPool
	senderPoolOnce sync.Once
)

func Senders() *SenderPool {
	senderPoolOnce.Do(func() {
		db := database.DB()
		senderPool = NewSenderPool(
			repository.NewSenderRepository(db),
			repository.NewSettingRepository(db),
			email.NewGomailTransport(time.Duration(config.Cfg.EmailSendTimeoutSeconds)*time.Second),
		)
	})
	return senderPool
}

func NewSenderPool(senders SenderStore, settings SettingStore, transport email.Transport) *SenderPool {
	return &SenderPool{
		senders:   senders,
		settings:  settings,
		transport: transport,
	}
}

// Send 发送一封邮件，自动在发件账号间做故障切换
func (p *SenderPool) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !strings.Contains(to, "@") {
		return pkgerrors.InvalidRecipient
	}

	msg := email.Message{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	}

	senders, err := p.senders.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active senders: %w", err)
	}

	if len(senders) == 0 {
		cred, err := p.fallbackCredential(ctx)
		if err != nil {
			return err
		}

		// 合成的兜底账号入池，后续投递走正常轮询并累计成功/失败计数
		member := &model.EmailSender{
			Host:     cred.Host,
			Port:     cred.Port,
			Secure:   cred.Secure,
			Username: cred.Username,
			Password: cred.Password,
			IsActive: true,
		}
		if err := p.senders.Create(ctx, member); err != nil {
			logger.Logger.Warn("Failed to persist fallback sender into pool",
				zap.String("host", member.Host),
				zap.Error(err),
			)
			member = nil
		}

		start := time.Now()
		if err := p.transport.Send(ctx, cred, msg); err != nil {
			metrics.RecordEmailSent(cred.Host, "failed", time.Since(start).Seconds())
			if member != nil {
				if recErr := p.senders.RecordFailure(ctx, member.ID); recErr != nil {
					logger.Logger.Warn("Failed to record fallback sender failure",
						zap.Int64("sender_id", member.ID),
						zap.Error(recErr),
					)
				}
			}
			return fmt.Errorf("fallback sender failed: %w", err)
		}
		metrics.RecordEmailSent(cred.Host, "success", time.Since(start).Seconds())
		if member != nil {
			if recErr := p.senders.RecordSuccess(ctx, member.ID); recErr != nil {
				logger.Logger.Warn("Failed to record fallback sender success",
					zap.Int64("sender_id", member.ID),
					zap.Error(recErr),
				)
			}
		}
		return nil
	}

	// 轮询起点跨调用递增，每个账号本次最多试一次
	offset := p.counter.Add(1)
	var lastErr error
	for i := 0; i < len(senders); i++ {
		sender := senders[(offset+uint64(i))%uint64(len(senders))]
		cred := email.Credential{
			Host:     sender.Host,
			Port:     sender.Port,
			Secure:   sender.Secure,
			Username: sender.Username,
			Password: sender.Password,
		}

		start := time.Now()
		err := p.transport.Send(ctx, cred, msg)
		duration := time.Since(start).Seconds()

		if err == nil {
			metrics.RecordEmailSent(cred.Host, "success", duration)
			if recErr := p.senders.RecordSuccess(ctx, sender.ID); recErr != nil {
				logger.Logger.Warn("Failed to record sender success",
					zap.Int64("sender_id", sender.ID),
					zap.Error(recErr),
				)
			}
			return nil
		}

		lastErr = err
		metrics.RecordEmailSent(cred.Host, "failed", duration)
		metrics.RecordSenderFailover("send_error")
		if recErr := p.senders.RecordFailure(ctx, sender.ID); recErr != nil {
			logger.Logger.Warn("Failed to record sender failure",
				zap.Int64("sender_id", sender.ID),
				zap.Error(recErr),
			)
		}

		logger.Logger.Warn("Email sender failed, rotating to next",
			zap.Int64("sender_id", sender.ID),
			zap.String("host", sender.Host),
			zap.Error(err),
		)
	}

	return fmt.Errorf("all %d email senders failed: %w", len(senders), lastErr)
}

// fallbackCredential 池为空时从系统配置合成一个发件账号，
// 优先取数据库配置项，缺失时退回环境变量。
// 合成的账号会被 Send 持久化进池子，只在首次兜底时发生一次。
func (p *SenderPool) fallbackCredential(ctx context.Context) (email.Credential, error) {
	cred := email.Credential{
		Host:     config.Cfg.EmailHost,
		Port:     config.Cfg.EmailPort,
		Secure:   config.Cfg.EmailSecure,
		Username: config.Cfg.EmailUser,
		Password: config.Cfg.EmailPass,
		From:     config.Cfg.EmailFrom,
	}

	if p.settings != nil {
		if host, err := p.getSetting(ctx, model.SettingEmailHost); err == nil && host != "" {
			cred.Host = host
		}
		if port, err := p.getSetting(ctx, model.SettingEmailPort); err == nil && port != "" {
			if n, convErr := strconv.Atoi(port); convErr == nil {
				cred.Port = n
			}
		}
		if secure, err := p.getSetting(ctx, model.SettingEmailSecure); err == nil && secure != "" {
			cred.Secure = secure == "true"
		}
		if user, err := p.getSetting(ctx, model.SettingEmailUser); err == nil && user != "" {
			cred.Username = user
		}
		if pass, err := p.getSetting(ctx, model.SettingEmailPass); err == nil && pass != "" {
			cred.Password = pass
		}
	}

	if cred.Host == "" || cred.Username == "" {
		return email.Credential{}, pkgerrors.NoSenderAvailable
	}
	return cred, nil
}

func (p *SenderPool) getSetting(ctx context.Context, key string) (string, error) {
	value, err := p.settings.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Logger.Warn("Failed to read setting",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return "", err
	}
	return value, nil
}
