package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 告警相关指标
	AlarmsTriggeredTotal metric.Int64Counter
	DeadlineChecksTotal  metric.Int64Counter

	// 短信渠道指标
	SMSSentTotal    metric.Int64Counter
	SMSSendDuration metric.Float64Histogram

	// 邮件渠道指标
	EmailSentTotal      metric.Int64Counter
	EmailSendDuration   metric.Float64Histogram
	SenderFailoverTotal metric.Int64Counter

	// 活动相关指标
	ActiveActivities metric.Int64UpDownCounter
}

var (
	metrics *OTelMetrics
	meter   = otel.Meter("saveme")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.AlarmsTriggeredTotal, err = meter.Int64Counter(
		"alarms_triggered_total",
		metric.WithDescription("Total number of emergency alarms triggered"),
		metric.WithUnit("{alarm}"),
	)
	if err != nil {
		return err
	}

	metrics.DeadlineChecksTotal, err = meter.Int64Counter(
		"deadline_checks_total",
		metric.WithDescription("Total number of deadline checks processed"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return err
	}

	metrics.SMSSentTotal, err = meter.Int64Counter(
		"sms_sent_total",
		metric.WithDescription("Total number of alert SMS sent"),
		metric.WithUnit("{sms}"),
	)
	if err != nil {
		return err
	}

	metrics.SMSSendDuration, err = meter.Float64Histogram(
		"sms_send_duration_seconds",
		metric.WithDescription("Time spent sending SMS in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.EmailSentTotal, err = meter.Int64Counter(
		"email_sent_total",
		metric.WithDescription("Total number of alert emails sent"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return err
	}

	metrics.EmailSendDuration, err = meter.Float64Histogram(
		"email_send_duration_seconds",
		metric.WithDescription("Time spent sending email in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.SenderFailoverTotal, err = meter.Int64Counter(
		"sender_failover_total",
		metric.WithDescription("Total number of email sender failover rotations"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return err
	}

	metrics.ActiveActivities, err = meter.Int64UpDownCounter(
		"active_activities",
		metric.WithDescription("Number of currently active activities"),
		metric.WithUnit("{activity}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordAlarmTriggered 记录一次告警触发
func (m *OTelMetrics) RecordAlarmTriggered(ctx context.Context, language string) {
	m.AlarmsTriggeredTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("language", language),
	))
}

// RecordDeadlineCheck 记录一次 deadline 检查及其结论
func (m *OTelMetrics) RecordDeadlineCheck(ctx context.Context, outcome string) {
	m.DeadlineChecksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordSMSSent 记录短信发送结果
func (m *OTelMetrics) RecordSMSSent(ctx context.Context, template, provider, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("template", template),
		attribute.String("provider", provider),
		attribute.String("status", status),
	}

	m.SMSSentTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.SMSSendDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("template", template),
		attribute.String("provider", provider),
	))
}

// RecordEmailSent 记录邮件发送结果
func (m *OTelMetrics) RecordEmailSent(ctx context.Context, host, status string, duration float64) {
	m.EmailSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("host", host),
		attribute.String("status", status),
	))
	m.EmailSendDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("host", host),
	))
}

// RecordSenderFailover 记录一次发送账号轮换
func (m *OTelMetrics) RecordSenderFailover(ctx context.Context, reason string) {
	m.SenderFailoverTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// AddActiveActivity 活跃活动数加一
func (m *OTelMetrics) AddActiveActivity(ctx context.Context) {
	m.ActiveActivities.Add(ctx, 1)
}

// SubtractActiveActivity 活跃活动数减一
func (m *OTelMetrics) SubtractActiveActivity(ctx context.Context) {
	m.ActiveActivities.Add(ctx, -1)
}
