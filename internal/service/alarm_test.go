package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/pkg/sms"
)

type fakeEmailSender struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.sent = append(f.sent, to)
	if f.failFor[to] {
		return errors.New("smtp unreachable")
	}
	return nil
}

func alarmedActivity() *model.Activity {
	lat, lng := 31.2304, 121.4737
	return &model.Activity{
		PublicID:              "act-1",
		PhoneNumber:           "13800138000",
		UserName:              "张三",
		Language:              "zh",
		EmergencyContactPhone: "13900139000",
		EmergencyContactEmail: "primary@example.com",
		SecondaryContactPhone: "13700137000",
		SecondaryContactEmail: "secondary@example.com",
		ActivityName:          "夜跑",
		LastLatitude:          &lat,
		LastLongitude:         &lng,
		Status:                model.ActivityStatusAlarmed,
		NextCheckInDeadline:   time.Date(2026, 3, 1, 20, 15, 0, 0, time.UTC),
	}
}

func TestDispatchSendsToAllChannels(t *testing.T) {
	smsClient := sms.NewMockClient()
	emails := &fakeEmailSender{}
	svc := NewAlarmService(smsClient, emails)

	svc.Dispatch(context.Background(), alarmedActivity())

	require.Equal(t, 1, smsClient.CallCount())
	assert.Equal(t, "13900139000", smsClient.Calls[0].Phone)
	assert.Equal(t, []string{"primary@example.com", "secondary@example.com"}, emails.sent)
}

func TestDispatchSMSParamsCarryActivityContext(t *testing.T) {
	smsClient := sms.NewMockClient()
	svc := NewAlarmService(smsClient, &fakeEmailSender{})

	svc.Dispatch(context.Background(), alarmedActivity())

	require.NotEmpty(t, smsClient.Calls)
	var params map[string]string
	require.NoError(t, json.Unmarshal([]byte(smsClient.Calls[0].TemplateParam), &params))
	assert.Equal(t, "act-1", params["activityId"])
	assert.Contains(t, params["location"], "121.4737")
}

func TestDispatchSMSFailureDoesNotBlockEmail(t *testing.T) {
	smsClient := sms.NewMockClient()
	smsClient.FailAlways = true
	emails := &fakeEmailSender{}
	svc := NewAlarmService(smsClient, emails)

	svc.Dispatch(context.Background(), alarmedActivity())

	assert.Equal(t, 1, smsClient.CallCount())
	assert.Len(t, emails.sent, 2)
}

func TestDispatchEmailFailureIsolatedPerTarget(t *testing.T) {
	smsClient := sms.NewMockClient()
	emails := &fakeEmailSender{failFor: map[string]bool{"primary@example.com": true}}
	svc := NewAlarmService(smsClient, emails)

	svc.Dispatch(context.Background(), alarmedActivity())

	// 主联系人失败后仍然尝试备用联系人
	assert.Equal(t, []string{"primary@example.com", "secondary@example.com"}, emails.sent)
}

func TestDispatchSkipsEmptySecondaryContacts(t *testing.T) {
	smsClient := sms.NewMockClient()
	emails := &fakeEmailSender{}
	svc := NewAlarmService(smsClient, emails)

	activity := alarmedActivity()
	activity.SecondaryContactPhone = ""
	activity.SecondaryContactEmail = ""
	svc.Dispatch(context.Background(), activity)

	assert.Equal(t, 1, smsClient.CallCount())
	assert.Equal(t, []string{"primary@example.com"}, emails.sent)
}

func TestDispatchSkipsInvalidEmailAddress(t *testing.T) {
	smsClient := sms.NewMockClient()
	emails := &fakeEmailSender{}
	svc := NewAlarmService(smsClient, emails)

	activity := alarmedActivity()
	activity.SecondaryContactEmail = "not-an-email"
	svc.Dispatch(context.Background(), activity)

	assert.Equal(t, []string{"primary@example.com"}, emails.sent)
}
