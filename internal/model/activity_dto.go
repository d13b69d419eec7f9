package model

import "time"

// StartActivityRequest 表示开启活动的请求体。
type StartActivityRequest struct {
	PhoneNumber           string   `json:"phone_number"`
	UserName              string   `json:"user_name"`
	ActivityName          string   `json:"activity_name"`
	Description           string   `json:"description"`
	IntervalMinutes       int      `json:"interval_minutes"`
	ToleranceMinutes      *int     `json:"tolerance_minutes,omitempty"`
	WarningMinutes        *int     `json:"warning_minutes,omitempty"`
	ContactPhone          string   `json:"contact_phone"`
	ContactEmail          string   `json:"contact_email"`
	SecondaryContactPhone string   `json:"secondary_contact_phone"`
	SecondaryContactEmail string   `json:"secondary_contact_email"`
	EmergencyInstructions string   `json:"emergency_instructions"`
	LastLatitude          *float64 `json:"last_latitude,omitempty"`
	LastLongitude         *float64 `json:"last_longitude,omitempty"`
	Language              string   `json:"language"`
}

// ReportSafeRequest 表示报平安（心跳）的请求体。
type ReportSafeRequest struct {
	Latitude     *float64 `json:"lat,omitempty"`
	Longitude    *float64 `json:"lng,omitempty"`
	BatteryLevel *int     `json:"battery_level,omitempty"`
}

// ReportSafeResult 表示报平安的结果。
type ReportSafeResult struct {
	Status       string    `json:"status"`
	NextDeadline time.Time `json:"next_deadline"`
}

// TestConnectionRequest 表示连接性测试的请求体。
type TestConnectionRequest struct {
	Email     string   `json:"email"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
}

// TestConnectionResult 表示连接性测试的结果。
type TestConnectionResult struct {
	Network   string `json:"network"`
	GPS       string `json:"gps"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// UpdateSettingsRequest 表示管理后台批量更新配置的请求体。
type UpdateSettingsRequest map[string]string

// CreateEmailSenderRequest 表示新增发件账号的请求体。
type CreateEmailSenderRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ToggleEmailSenderRequest 表示启用/禁用发件账号的请求体。
type ToggleEmailSenderRequest struct {
	IsActive bool `json:"is_active"`
}
