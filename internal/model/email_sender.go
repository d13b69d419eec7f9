package model

// EmailSender 发件池成员，一条出站 SMTP 凭据
// 只会被软禁用（IsActive = false），不会被自动删除
type EmailSender struct {
	BaseModel
	Host         string `gorm:"type:varchar(128);not null" json:"host"`
	Port         int    `gorm:"not null" json:"port"`
	Secure       bool   `gorm:"not null;default:true" json:"secure"` // SSL/TLS
	Username     string `gorm:"type:varchar(128);not null" json:"username"`
	Password     string `gorm:"type:varchar(128);not null" json:"-"`
	IsActive     bool   `gorm:"not null;default:true;index:idx_email_senders_active" json:"is_active"`
	SuccessCount int64  `gorm:"not null;default:0" json:"success_count"`
	FailCount    int64  `gorm:"not null;default:0" json:"fail_count"`
}

// TableName 指定表名
func (EmailSender) TableName() string {
	return "email_senders"
}
