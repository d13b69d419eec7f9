package database

import (
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
)

// Migrate 运行数据库迁移，创建所有表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.User{},
		&model.Activity{},
		&model.CheckIn{},
		&model.EmailSender{},
		&model.Setting{},
	)

	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	if err := seedSettings(db); err != nil {
		logger.Logger.Error("Settings seeding failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}

// seedSettings 初始化默认配置项，已存在的键不会被覆盖
func seedSettings(db *gorm.DB) error {
	cfg := config.Cfg

	secure := "false"
	if cfg.EmailSecure {
		secure = "true"
	}

	defaults := []model.Setting{
		{Key: model.SettingEmailHost, Value: cfg.EmailHost, Description: "邮件服务器地址"},
		{Key: model.SettingEmailPort, Value: strconv.Itoa(cfg.EmailPort), Description: "邮件服务器端口"},
		{Key: model.SettingEmailSecure, Value: secure, Description: "是否使用 SSL/TLS (true/false)"},
		{Key: model.SettingEmailUser, Value: cfg.EmailUser, Description: "发件邮箱账号"},
		{Key: model.SettingEmailPass, Value: cfg.EmailPass, Description: "发件邮箱授权码"},
		{Key: model.SettingSMSAccessKeyID, Value: "", Description: "阿里云 AccessKey ID"},
		{Key: model.SettingSMSAccessKeySecret, Value: "", Description: "阿里云 AccessKey Secret"},
		{Key: model.SettingSMSSignName, Value: cfg.SMSSignName, Description: "阿里云短信签名"},
		{Key: model.SettingSMSTemplateCode, Value: cfg.SMSAlertTemplateCode, Description: "阿里云短信模板 Code"},
	}

	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}
