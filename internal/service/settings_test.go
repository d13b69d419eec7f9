package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapplex-sz/save-me-app/internal/model"
)

type fakeSenderAdminStore struct {
	senders []*model.EmailSender
	toggled map[int64]bool
	deleted []int64
}

func (f *fakeSenderAdminStore) List(ctx context.Context) ([]*model.EmailSender, error) {
	return f.senders, nil
}

func (f *fakeSenderAdminStore) Create(ctx context.Context, sender *model.EmailSender) error {
	sender.ID = int64(len(f.senders) + 1)
	f.senders = append(f.senders, sender)
	return nil
}

func (f *fakeSenderAdminStore) SetActive(ctx context.Context, id int64, active bool) error {
	if f.toggled == nil {
		f.toggled = map[int64]bool{}
	}
	f.toggled[id] = active
	return nil
}

func (f *fakeSenderAdminStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSettingAdminStore struct {
	values   map[string]string
	upserted map[string]string
}

func (f *fakeSettingAdminStore) GetAll(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSettingAdminStore) Upsert(ctx context.Context, key, value string) error {
	if f.upserted == nil {
		f.upserted = map[string]string{}
	}
	f.upserted[key] = value
	return nil
}

func TestGetSettingsMasksSecrets(t *testing.T) {
	settings := &fakeSettingAdminStore{values: map[string]string{
		model.SettingEmailHost:          "smtp.example.com",
		model.SettingEmailPass:          "super-secret",
		model.SettingSMSAccessKeySecret: "ak-secret",
		model.SettingSMSSignName:        "救救我",
	}}
	svc := NewSettingsService(settings, &fakeSenderAdminStore{}, &fakeEmailSender{})

	got, err := svc.GetSettings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", got[model.SettingEmailHost])
	assert.Equal(t, "******", got[model.SettingEmailPass])
	assert.Equal(t, "******", got[model.SettingSMSAccessKeySecret])
	assert.Equal(t, "救救我", got[model.SettingSMSSignName])
}

func TestUpdateSettingsSkipsMaskedPlaceholders(t *testing.T) {
	settings := &fakeSettingAdminStore{}
	svc := NewSettingsService(settings, &fakeSenderAdminStore{}, &fakeEmailSender{})

	err := svc.UpdateSettings(context.Background(), model.UpdateSettingsRequest{
		model.SettingEmailHost: "smtp.new.com",
		model.SettingEmailPass: "******",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.new.com", settings.upserted[model.SettingEmailHost])
	assert.NotContains(t, settings.upserted, model.SettingEmailPass)
}

func TestCreateSenderDefaults(t *testing.T) {
	senders := &fakeSenderAdminStore{}
	svc := NewSettingsService(&fakeSettingAdminStore{}, senders, &fakeEmailSender{})

	sender, err := svc.CreateSender(context.Background(), &model.CreateEmailSenderRequest{
		Host:     "smtp.example.com",
		Username: "alerts@example.com",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, 465, sender.Port)
	assert.True(t, sender.IsActive)
	require.Len(t, senders.senders, 1)
}

func TestCreateSenderRequiresHostAndUsername(t *testing.T) {
	svc := NewSettingsService(&fakeSettingAdminStore{}, &fakeSenderAdminStore{}, &fakeEmailSender{})

	_, err := svc.CreateSender(context.Background(), &model.CreateEmailSenderRequest{Host: "smtp.example.com"})
	assert.Error(t, err)
}

func TestTestConnectionReportsChannels(t *testing.T) {
	emails := &fakeEmailSender{}
	svc := NewSettingsService(&fakeSettingAdminStore{}, &fakeSenderAdminStore{}, emails)

	lat, lng := 31.23, 121.47
	result := svc.TestConnection(context.Background(), &model.TestConnectionRequest{
		Email:     "probe@example.com",
		Latitude:  &lat,
		Longitude: &lng,
	})

	assert.Equal(t, "ok", result.Network)
	assert.Equal(t, "ok", result.GPS)
	assert.Equal(t, "ok", result.Email)
	assert.Equal(t, []string{"probe@example.com"}, emails.sent)
}

func TestTestConnectionWithoutCoordinatesOrEmail(t *testing.T) {
	emails := &fakeEmailSender{}
	svc := NewSettingsService(&fakeSettingAdminStore{}, &fakeSenderAdminStore{}, emails)

	result := svc.TestConnection(context.Background(), &model.TestConnectionRequest{})

	assert.Equal(t, "missing", result.GPS)
	assert.Equal(t, "pending", result.Email)
	assert.Empty(t, emails.sent)
}

func TestTestConnectionEmailFailure(t *testing.T) {
	emails := &fakeEmailSender{failFor: map[string]bool{"probe@example.com": true}}
	svc := NewSettingsService(&fakeSettingAdminStore{}, &fakeSenderAdminStore{}, emails)

	result := svc.TestConnection(context.Background(), &model.TestConnectionRequest{Email: "probe@example.com"})
	assert.Equal(t, "failed", result.Email)
}
