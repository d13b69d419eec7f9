package model

// Setting 键值配置项，供管理后台修改
type Setting struct {
	Key         string `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value       string `gorm:"type:text" json:"value"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}

// 配置键名，与管理后台和兜底发件逻辑共用
const (
	SettingEmailHost   = "EMAIL_HOST"
	SettingEmailPort   = "EMAIL_PORT"
	SettingEmailSecure = "EMAIL_SECURE"
	SettingEmailUser   = "EMAIL_USER"
	SettingEmailPass   = "EMAIL_PASS"

	SettingSMSAccessKeyID     = "SMS_ACCESS_KEY_ID"
	SettingSMSAccessKeySecret = "SMS_ACCESS_KEY_SECRET"
	SettingSMSSignName        = "SMS_SIGN_NAME"
	SettingSMSTemplateCode    = "SMS_TEMPLATE_CODE"
)
