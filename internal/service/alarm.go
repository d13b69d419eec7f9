package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/alert"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
	"github.com/sapplex-sz/save-me-app/pkg/metrics"
	"github.com/sapplex-sz/save-me-app/pkg/sms"
)

// SMSSender 短信渠道接口
type SMSSender interface {
	SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*sms.SendResponse, error)
}

// EmailSender 邮件渠道接口，由发件账号池实现
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// AlarmService 告警分发，把同一份告警内容独立投递到短信和邮件渠道。
// 单个渠道失败只记录日志，不影响其他渠道。
type AlarmService struct {
	smsClient SMSSender
	emails    EmailSender
}

var (
	alarmService *AlarmService
	alarmOnce    sync.Once
)

func Alarm() *AlarmService {
	alarmOnce.Do(func() {
		alarmService = NewAlarmService(sms.GetClient(), Senders())
	})
	return alarmService
}

func NewAlarmService(smsClient SMSSender, emails EmailSender) *AlarmService {
	return &AlarmService{
		smsClient: smsClient,
		emails:    emails,
	}
}

// Dispatch 对已判定失联的活动发出全渠道告警。
// missedDeadline 取活动被错过的 deadline，而不是分发时刻。
func (s *AlarmService) Dispatch(ctx context.Context, activity *model.Activity) {
	content := alert.BuildContent(activity, activity.NextCheckInDeadline, config.Cfg.SMSDescriptionMaxRunes)

	logger.Logger.Error("EMERGENCY ALERT: participant missed check-in deadline",
		zap.String("activity_id", activity.PublicID),
		zap.String("phone", activity.PhoneNumber),
		zap.String("activity_name", activity.ActivityName),
		zap.String("contact_phone", activity.EmergencyContactPhone),
		zap.String("map_link", content.MapLink),
		zap.Time("missed_deadline", activity.NextCheckInDeadline),
	)

	metrics.RecordAlarmTriggered(activity.Language)

	s.dispatchSMS(ctx, activity, content)
	s.dispatchEmail(ctx, activity, content)
}

func (s *AlarmService) dispatchSMS(ctx context.Context, activity *model.Activity, content *alert.Content) {
	paramJSON, err := json.Marshal(content.SMSParams)
	if err != nil {
		logger.Logger.Error("Failed to marshal SMS template params",
			zap.String("activity_id", activity.PublicID),
			zap.Error(err),
		)
		return
	}

	phone := activity.EmergencyContactPhone
	start := time.Now()
	_, err = s.smsClient.SendSingle(ctx, phone,
		config.Cfg.SMSSignName, config.Cfg.SMSAlertTemplateCode, string(paramJSON))
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordSMSSent(config.Cfg.SMSAlertTemplateCode, config.Cfg.SMSProvider, "failed", duration)
		logger.Logger.Error("Failed to send SMS alert",
			zap.String("activity_id", activity.PublicID),
			zap.String("phone", phone),
			zap.Error(err),
		)
		return
	}

	metrics.RecordSMSSent(config.Cfg.SMSAlertTemplateCode, config.Cfg.SMSProvider, "success", duration)
	logger.Logger.Info("SMS alert sent",
		zap.String("activity_id", activity.PublicID),
		zap.String("phone", phone),
	)
}

func (s *AlarmService) dispatchEmail(ctx context.Context, activity *model.Activity, content *alert.Content) {
	var targets []string
	for _, addr := range []string{activity.EmergencyContactEmail, activity.SecondaryContactEmail} {
		if addr == "" {
			continue
		}
		if !strings.Contains(addr, "@") {
			logger.Logger.Warn("Skipping invalid alert email address",
				zap.String("activity_id", activity.PublicID),
				zap.String("to", addr),
			)
			continue
		}
		targets = append(targets, addr)
	}

	for _, to := range targets {
		if err := s.emails.Send(ctx, to, content.Subject, content.HTMLBody); err != nil {
			logger.Logger.Error("Failed to send email alert",
				zap.String("activity_id", activity.PublicID),
				zap.String("to", to),
				zap.Error(err),
			)
			continue
		}

		logger.Logger.Info("Email alert sent",
			zap.String("activity_id", activity.PublicID),
			zap.String("to", to),
		)
	}
}
