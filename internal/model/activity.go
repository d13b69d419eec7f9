package model

import "time"

// ActivityStatus 活动状态枚举
type ActivityStatus string

const (
	ActivityStatusActive   ActivityStatus = "active"   // 进行中，需要按时报平安
	ActivityStatusSafe     ActivityStatus = "safe"     // 预留状态，当前没有任何迁移会进入
	ActivityStatusAlarmed  ActivityStatus = "alarmed"  // 已触发告警，可由报平安恢复为 active
	ActivityStatusFinished ActivityStatus = "finished" // 终态，不再迁移
)

// Activity 一次被守护的活动，核心实体
type Activity struct {
	BaseModel
	PublicID string `gorm:"uniqueIndex;type:varchar(36);not null" json:"public_id"`

	// 参与者信息
	PhoneNumber string `gorm:"type:varchar(20);not null;index:idx_activities_phone" json:"phone_number"`
	UserName    string `gorm:"type:varchar(64)" json:"user_name"`
	Language    string `gorm:"type:varchar(8);not null;default:'zh'" json:"language"` // zh, en
	UserID      *int64 `gorm:"index" json:"user_id,omitempty"`                        // 可选关联注册用户

	// 紧急联系人
	EmergencyContactPhone string `gorm:"type:varchar(20);not null" json:"emergency_contact_phone"`
	EmergencyContactEmail string `gorm:"type:varchar(128)" json:"emergency_contact_email"`
	SecondaryContactPhone string `gorm:"type:varchar(20)" json:"secondary_contact_phone"`
	SecondaryContactEmail string `gorm:"type:varchar(128)" json:"secondary_contact_email"`

	// 活动内容
	ActivityName          string `gorm:"type:varchar(128);not null" json:"activity_name"`
	Description           string `gorm:"type:text" json:"description"`
	EmergencyInstructions string `gorm:"type:text" json:"emergency_instructions"`

	// 最后已知状态
	LastLatitude  *float64 `gorm:"type:float8" json:"last_latitude,omitempty"`
	LastLongitude *float64 `gorm:"type:float8" json:"last_longitude,omitempty"`
	BatteryLevel  *int     `gorm:"type:int" json:"battery_level,omitempty"`

	// 时间参数
	CheckInIntervalMinutes int `gorm:"not null" json:"check_in_interval_minutes"`
	ToleranceMinutes       int `gorm:"not null;default:5" json:"tolerance_minutes"`
	WarningMinutes         int `gorm:"not null;default:5" json:"warning_minutes"` // 软预警提前量，触发逻辑暂未使用

	NextCheckInDeadline time.Time      `gorm:"type:timestamptz;not null;index:idx_activities_deadline" json:"next_check_in_deadline"`
	IsWarned            bool           `gorm:"not null;default:false" json:"is_warned"`
	Status              ActivityStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_activities_status" json:"status"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}

// IsHeartbeatAllowed 判断当前状态是否允许报平安
func (a *Activity) IsHeartbeatAllowed() bool {
	return a.Status == ActivityStatusActive || a.Status == ActivityStatusAlarmed
}

// ComputeDeadline 根据参考时间计算下一次报平安的最晚时间
func (a *Activity) ComputeDeadline(reference time.Time) time.Time {
	return reference.Add(time.Duration(a.CheckInIntervalMinutes+a.ToleranceMinutes) * time.Minute)
}
