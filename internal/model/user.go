package model

// User 注册用户档案，提供开启活动时的默认联系人与间隔
type User struct {
	BaseModel
	PhoneNumber           string `gorm:"uniqueIndex;type:varchar(20);not null" json:"phone_number"`
	DefaultContactPhone   string `gorm:"type:varchar(20)" json:"default_contact_phone"`
	DefaultContactEmail   string `gorm:"type:varchar(128)" json:"default_contact_email"`
	DefaultIntervalMinute int    `gorm:"not null;default:30" json:"default_interval_minutes"`
	DefaultWarningMinutes int    `gorm:"not null;default:5" json:"default_warning_minutes"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
