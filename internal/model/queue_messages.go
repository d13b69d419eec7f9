package model

// DeadlineCheckMessage 活动超时检查消息（延迟消息）
// DeadlineSnapshot 仅用于日志观测，消费端以数据库中的最新状态为准
type DeadlineCheckMessage struct {
	MessageID        string `json:"message_id"`
	ActivityID       string `json:"activity_id"`
	DeadlineSnapshot string `json:"deadline_snapshot"` // RFC3339
	ScheduledAt      string `json:"scheduled_at"`
	DelaySeconds     int    `json:"delay_seconds"`
}
