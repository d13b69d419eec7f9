package metrics

import (
	"context"
)

// 包级别的便捷入口，未初始化时静默跳过

// RecordAlarmTriggered 记录告警触发
func RecordAlarmTriggered(language string) {
	if m := GetMetrics(); m != nil {
		m.RecordAlarmTriggered(context.Background(), language)
	}
}

// RecordDeadlineCheck 记录 deadline 检查结论（triggered / still_valid / skipped）
func RecordDeadlineCheck(outcome string) {
	if m := GetMetrics(); m != nil {
		m.RecordDeadlineCheck(context.Background(), outcome)
	}
}

// RecordSMSSent 记录短信发送结果
func RecordSMSSent(template, provider, status string, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordSMSSent(context.Background(), template, provider, status, duration)
	}
}

// RecordEmailSent 记录邮件发送结果
func RecordEmailSent(host, status string, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordEmailSent(context.Background(), host, status, duration)
	}
}

// RecordSenderFailover 记录发送账号轮换
func RecordSenderFailover(reason string) {
	if m := GetMetrics(); m != nil {
		m.RecordSenderFailover(context.Background(), reason)
	}
}

// AddActiveActivity 活跃活动数加一
func AddActiveActivity() {
	if m := GetMetrics(); m != nil {
		m.AddActiveActivity(context.Background())
	}
}

// SubtractActiveActivity 活跃活动数减一
func SubtractActiveActivity() {
	if m := GetMetrics(); m != nil {
		m.SubtractActiveActivity(context.Background())
	}
}
