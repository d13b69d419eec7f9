package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/pkg/email"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
)

type fakeSenderStore struct {
	active    []*model.EmailSender
	successes []int64
	failures  []int64
}

func (f *fakeSenderStore) ListActive(ctx context.Context) ([]*model.EmailSender, error) {
	return f.active, nil
}

func (f *fakeSenderStore) Create(ctx context.Context, sender *model.EmailSender) error {
	sender.ID = int64(len(f.active) + 1)
	f.active = append(f.active, sender)
	return nil
}

func (f *fakeSenderStore) RecordSuccess(ctx context.Context, id int64) error {
	f.successes = append(f.successes, id)
	return nil
}

func (f *fakeSenderStore) RecordFailure(ctx context.Context, id int64) error {
	f.failures = append(f.failures, id)
	return nil
}

type fakeSettingStore struct {
	values map[string]string
}

func (f *fakeSettingStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", gorm.ErrRecordNotFound
}

func poolSender(id int64, username string) *model.EmailSender {
	return &model.EmailSender{
		BaseModel: model.BaseModel{ID: id},
		Host:      "smtp.example.com",
		Port:      465,
		Secure:    true,
		Username:  username,
		Password:  "secret",
		IsActive:  true,
	}
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	pool := NewSenderPool(&fakeSenderStore{}, &fakeSettingStore{}, email.NewMockTransport())

	err := pool.Send(context.Background(), "not-an-email", "subject", "<p>body</p>")
	assert.ErrorIs(t, err, pkgerrors.InvalidRecipient)
}

func TestSendUsesFirstHealthySender(t *testing.T) {
	store := &fakeSenderStore{active: []*model.EmailSender{
		poolSender(1, "a@example.com"),
		poolSender(2, "b@example.com"),
	}}
	transport := email.NewMockTransport()
	pool := NewSenderPool(store, &fakeSettingStore{}, transport)

	err := pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	require.NoError(t, err)

	assert.Equal(t, 1, transport.SendCount())
	assert.Len(t, store.successes, 1)
	assert.Empty(t, store.failures)
}

func TestSendFailsOverToNextSender(t *testing.T) {
	store := &fakeSenderStore{active: []*model.EmailSender{
		poolSender(1, "a@example.com"),
		poolSender(2, "b@example.com"),
	}}
	transport := email.NewMockTransport()
	transport.FailFor["a@example.com"] = true
	transport.FailFor["b@example.com"] = false
	pool := NewSenderPool(store, &fakeSettingStore{}, transport)

	// 第一次投递从 offset 1 开始，命中 b；让 b 也失败一次验证切换
	transport.FailFor["b@example.com"] = true
	err := pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	assert.Error(t, err)
	assert.Equal(t, 2, transport.SendCount())
	assert.Len(t, store.failures, 2)

	// 放开 b 后，下一次投递应当成功且每个账号最多试一次
	transport.Sends = transport.Sends[:0]
	transport.FailFor["b@example.com"] = false
	err = pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	require.NoError(t, err)
	assert.LessOrEqual(t, transport.SendCount(), 2)
	assert.Len(t, store.successes, 1)
}

func TestSendAllSendersFail(t *testing.T) {
	store := &fakeSenderStore{active: []*model.EmailSender{
		poolSender(1, "a@example.com"),
		poolSender(2, "b@example.com"),
		poolSender(3, "c@example.com"),
	}}
	transport := email.NewMockTransport()
	transport.FailAlways = true
	pool := NewSenderPool(store, &fakeSettingStore{}, transport)

	err := pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 email senders failed")
	assert.Equal(t, 3, transport.SendCount())
	assert.Len(t, store.failures, 3)
}

func TestSendRotatesStartingSender(t *testing.T) {
	store := &fakeSenderStore{active: []*model.EmailSender{
		poolSender(1, "a@example.com"),
		poolSender(2, "b@example.com"),
	}}
	transport := email.NewMockTransport()
	pool := NewSenderPool(store, &fakeSettingStore{}, transport)

	require.NoError(t, pool.Send(context.Background(), "t@example.com", "s", "b"))
	require.NoError(t, pool.Send(context.Background(), "t@example.com", "s", "b"))

	require.Equal(t, 2, transport.SendCount())
	assert.NotEqual(t, transport.Sends[0].Cred.Username, transport.Sends[1].Cred.Username)
}

func TestSendFallsBackToSettingsWhenPoolEmpty(t *testing.T) {
	settings := &fakeSettingStore{values: map[string]string{
		model.SettingEmailHost:   "smtp.fallback.com",
		model.SettingEmailPort:   "587",
		model.SettingEmailSecure: "false",
		model.SettingEmailUser:   "fallback@example.com",
		model.SettingEmailPass:   "fallback-secret",
	}}
	store := &fakeSenderStore{}
	transport := email.NewMockTransport()
	pool := NewSenderPool(store, settings, transport)

	err := pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	require.NoError(t, err)

	require.Equal(t, 1, transport.SendCount())
	cred := transport.Sends[0].Cred
	assert.Equal(t, "smtp.fallback.com", cred.Host)
	assert.Equal(t, 587, cred.Port)
	assert.False(t, cred.Secure)
	assert.Equal(t, "fallback@example.com", cred.Username)
}

func TestFallbackSenderPersistedIntoPool(t *testing.T) {
	settings := &fakeSettingStore{values: map[string]string{
		model.SettingEmailHost: "smtp.fallback.com",
		model.SettingEmailUser: "fallback@example.com",
		model.SettingEmailPass: "fallback-secret",
	}}
	store := &fakeSenderStore{}
	transport := email.NewMockTransport()
	pool := NewSenderPool(store, settings, transport)

	require.NoError(t, pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>"))

	// 兜底账号入池并记录了一次成功
	require.Len(t, store.active, 1)
	member := store.active[0]
	assert.Equal(t, "smtp.fallback.com", member.Host)
	assert.Equal(t, "fallback@example.com", member.Username)
	assert.True(t, member.IsActive)
	assert.Equal(t, []int64{member.ID}, store.successes)

	// 第二次投递走正常轮询，不再进入兜底分支
	require.NoError(t, pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>"))
	assert.Len(t, store.active, 1)
	assert.Len(t, store.successes, 2)
}

func TestSendNoSenderAvailable(t *testing.T) {
	origUser := config.Cfg.EmailUser
	config.Cfg.EmailUser = ""
	defer func() { config.Cfg.EmailUser = origUser }()

	transport := email.NewMockTransport()
	pool := NewSenderPool(&fakeSenderStore{}, &fakeSettingStore{}, transport)

	err := pool.Send(context.Background(), "target@example.com", "subject", "<p>body</p>")
	assert.ErrorIs(t, err, pkgerrors.NoSenderAvailable)
	assert.Equal(t, 0, transport.SendCount())
}
