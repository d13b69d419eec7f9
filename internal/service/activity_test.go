package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sapplex-sz/save-me-app/internal/model"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
)

type fakeActivityStore struct {
	byPublicID map[string]*model.Activity
	recent     *model.Activity
	active     *model.Activity

	saved     []*model.Activity
	checkIns  []*model.CheckIn
	alarmWins bool
	alarmErr  error
	alarmed   []string
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{byPublicID: map[string]*model.Activity{}}
}

func (f *fakeActivityStore) GetByPublicID(ctx context.Context, publicID string) (*model.Activity, error) {
	if a, ok := f.byPublicID[publicID]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeActivityStore) GetMostRecentByPhone(ctx context.Context, phone string) (*model.Activity, error) {
	if f.recent == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.recent, nil
}

func (f *fakeActivityStore) GetActiveByPhone(ctx context.Context, phone string) (*model.Activity, error) {
	if f.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.active, nil
}

func (f *fakeActivityStore) Save(ctx context.Context, activity *model.Activity) error {
	f.saved = append(f.saved, activity)
	f.byPublicID[activity.PublicID] = activity
	return nil
}

func (f *fakeActivityStore) MarkAlarmed(ctx context.Context, publicID string, now time.Time) (bool, error) {
	if f.alarmErr != nil {
		return false, f.alarmErr
	}
	if f.alarmWins {
		f.alarmed = append(f.alarmed, publicID)
	}
	return f.alarmWins, nil
}

func (f *fakeActivityStore) AppendCheckIn(ctx context.Context, checkIn *model.CheckIn) error {
	f.checkIns = append(f.checkIns, checkIn)
	return nil
}

type fakeUserStore struct {
	user *model.User
	err  error
}

func (f *fakeUserStore) EnsureByPhone(ctx context.Context, phone string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type scheduledCheck struct {
	activityID string
	deadline   time.Time
	delay      time.Duration
}

type fakeScheduler struct {
	checks []scheduledCheck
	err    error
}

func (f *fakeScheduler) ScheduleCheck(activityID string, deadline time.Time, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.checks = append(f.checks, scheduledCheck{activityID: activityID, deadline: deadline, delay: delay})
	return nil
}

type fakeDispatcher struct {
	dispatched []*model.Activity
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, activity *model.Activity) {
	f.dispatched = append(f.dispatched, activity)
}

func newTestService(store *fakeActivityStore, users *fakeUserStore, now time.Time) (*ActivityService, *fakeScheduler, *fakeDispatcher) {
	scheduler := &fakeScheduler{}
	dispatcher := &fakeDispatcher{}
	svc := NewActivityService(store, users, scheduler, dispatcher)
	svc.now = func() time.Time { return now }
	return svc, scheduler, dispatcher
}

func baseStartRequest() *model.StartActivityRequest {
	return &model.StartActivityRequest{
		PhoneNumber:     "13800138000",
		UserName:        "张三",
		ActivityName:    "夜跑",
		IntervalMinutes: 10,
		ContactPhone:    "13900139000",
		ContactEmail:    "contact@example.com",
	}
}

func TestStartCreatesActiveActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	svc, scheduler, _ := newTestService(store, &fakeUserStore{err: errors.New("db down")}, now)

	activity, err := svc.Start(context.Background(), baseStartRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ActivityStatusActive, activity.Status)
	assert.NotEmpty(t, activity.PublicID)
	assert.Equal(t, "zh", activity.Language)
	assert.Equal(t, 10, activity.CheckInIntervalMinutes)
	assert.Equal(t, 5, activity.ToleranceMinutes)
	// deadline = now + interval + tolerance
	assert.Equal(t, now.Add(15*time.Minute), activity.NextCheckInDeadline)

	require.Len(t, scheduler.checks, 1)
	assert.Equal(t, activity.PublicID, scheduler.checks[0].activityID)
	assert.Equal(t, 15*time.Minute, scheduler.checks[0].delay)
}

func TestStartRateLimited(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.recent = &model.Activity{
		BaseModel: model.BaseModel{CreatedAt: now.Add(-30 * time.Second)},
		PublicID:  "recent",
	}
	svc, _, _ := newTestService(store, &fakeUserStore{err: errors.New("no user")}, now)

	_, err := svc.Start(context.Background(), baseStartRequest())
	assert.ErrorIs(t, err, pkgerrors.ActivityRateLimited)
	assert.Empty(t, store.saved)
}

func TestStartClosesPreviousActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.recent = &model.Activity{
		BaseModel: model.BaseModel{CreatedAt: now.Add(-10 * time.Minute)},
		PublicID:  "previous",
		Status:    model.ActivityStatusActive,
	}
	store.active = store.recent
	svc, _, _ := newTestService(store, &fakeUserStore{err: errors.New("no user")}, now)

	activity, err := svc.Start(context.Background(), baseStartRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ActivityStatusFinished, store.active.Status)
	assert.NotEqual(t, "previous", activity.PublicID)
}

func TestStartUsesUserDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	users := &fakeUserStore{user: &model.User{
		BaseModel:             model.BaseModel{ID: 7},
		PhoneNumber:           "13800138000",
		DefaultIntervalMinute: 45,
		DefaultWarningMinutes: 8,
	}}
	svc, _, _ := newTestService(store, users, now)

	req := baseStartRequest()
	req.IntervalMinutes = 0
	activity, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 45, activity.CheckInIntervalMinutes)
	assert.Equal(t, 8, activity.WarningMinutes)
	require.NotNil(t, activity.UserID)
	assert.Equal(t, int64(7), *activity.UserID)
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	svc, _, _ := newTestService(store, &fakeUserStore{err: errors.New("no user")}, now)

	req := baseStartRequest()
	req.IntervalMinutes = 0
	_, err := svc.Start(context.Background(), req)

	var def pkgerrors.Definition
	require.ErrorAs(t, err, &def)
	assert.Equal(t, "INVALID_REQUEST", def.Code)
}

func TestReportSafePushesDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.byPublicID["act-1"] = &model.Activity{
		BaseModel:              model.BaseModel{ID: 1},
		PublicID:               "act-1",
		Status:                 model.ActivityStatusActive,
		CheckInIntervalMinutes: 10,
		ToleranceMinutes:       5,
		NextCheckInDeadline:    now.Add(5 * time.Minute),
	}
	svc, scheduler, _ := newTestService(store, nil, now)

	lat, lng := 31.23, 121.47
	battery := 80
	result, err := svc.ReportSafe(context.Background(), "act-1", &model.ReportSafeRequest{
		Latitude:     &lat,
		Longitude:    &lng,
		BatteryLevel: &battery,
	})
	require.NoError(t, err)

	assert.Equal(t, "active", result.Status)
	assert.Equal(t, now.Add(15*time.Minute), result.NextDeadline)

	activity := store.byPublicID["act-1"]
	assert.Equal(t, lat, *activity.LastLatitude)
	assert.Equal(t, lng, *activity.LastLongitude)
	assert.Equal(t, battery, *activity.BatteryLevel)

	require.Len(t, store.checkIns, 1)
	assert.Equal(t, int64(1), store.checkIns[0].ActivityID)

	require.Len(t, scheduler.checks, 1)
	assert.Equal(t, now.Add(15*time.Minute), scheduler.checks[0].deadline)
}

func TestReportSafeWithoutCoordinatesSkipsCheckIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.byPublicID["act-1"] = &model.Activity{
		BaseModel:              model.BaseModel{ID: 1},
		PublicID:               "act-1",
		Status:                 model.ActivityStatusActive,
		CheckInIntervalMinutes: 10,
		ToleranceMinutes:       5,
	}
	svc, _, _ := newTestService(store, nil, now)

	_, err := svc.ReportSafe(context.Background(), "act-1", &model.ReportSafeRequest{})
	require.NoError(t, err)

	assert.Empty(t, store.checkIns)
}

func TestReportSafeRecoversAlarmedActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.byPublicID["act-1"] = &model.Activity{
		PublicID:               "act-1",
		Status:                 model.ActivityStatusAlarmed,
		CheckInIntervalMinutes: 10,
		ToleranceMinutes:       5,
		IsWarned:               true,
	}
	svc, _, _ := newTestService(store, nil, now)

	result, err := svc.ReportSafe(context.Background(), "act-1", &model.ReportSafeRequest{})
	require.NoError(t, err)

	assert.Equal(t, "active", result.Status)
	assert.False(t, store.byPublicID["act-1"].IsWarned)
}

func TestReportSafeRejectsFinishedActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.byPublicID["act-1"] = &model.Activity{
		PublicID: "act-1",
		Status:   model.ActivityStatusFinished,
	}
	svc, _, _ := newTestService(store, nil, now)

	_, err := svc.ReportSafe(context.Background(), "act-1", &model.ReportSafeRequest{})
	assert.ErrorIs(t, err, pkgerrors.ActivityNotActive)
}

func TestReportSafeUnknownActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(newFakeActivityStore(), nil, now)

	_, err := svc.ReportSafe(context.Background(), "missing", &model.ReportSafeRequest{})
	assert.ErrorIs(t, err, pkgerrors.ActivityNotFound)
}

func TestEndIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.byPublicID["act-1"] = &model.Activity{
		PublicID: "act-1",
		Status:   model.ActivityStatusActive,
	}
	svc, _, _ := newTestService(store, nil, now)

	first, err := svc.End(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActivityStatusFinished, first.Status)
	savedCount := len(store.saved)

	second, err := svc.End(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, model.ActivityStatusFinished, second.Status)
	assert.Len(t, store.saved, savedCount)
}

func TestEndAbsentActivityIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	svc, _, _ := newTestService(store, nil, now)

	activity, err := svc.End(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, activity)
	assert.Empty(t, store.saved)
}

func TestCheckDeadlineTriggersAlarm(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.alarmWins = true
	store.byPublicID["act-1"] = &model.Activity{
		PublicID:            "act-1",
		Status:              model.ActivityStatusActive,
		NextCheckInDeadline: now.Add(-1 * time.Minute),
	}
	svc, _, dispatcher := newTestService(store, nil, now)

	err := svc.CheckDeadline(context.Background(), "act-1")
	require.NoError(t, err)

	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, model.ActivityStatusAlarmed, dispatcher.dispatched[0].Status)
	assert.Equal(t, []string{"act-1"}, store.alarmed)
}

func TestCheckDeadlineStaleTaskIsNoOp(t *testing.T) {
	// T0 开启活动，interval 10 + tolerance 5，deadline T0+15。
	// T0+14 报平安把 deadline 推到 T0+29，T0+15 的旧任务到期后应当什么都不做。
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.alarmWins = true
	store.byPublicID["act-1"] = &model.Activity{
		PublicID:               "act-1",
		Status:                 model.ActivityStatusActive,
		CheckInIntervalMinutes: 10,
		ToleranceMinutes:       5,
		NextCheckInDeadline:    t0.Add(15 * time.Minute),
	}
	svc, scheduler, dispatcher := newTestService(store, nil, t0)

	svc.now = func() time.Time { return t0.Add(14 * time.Minute) }
	_, err := svc.ReportSafe(context.Background(), "act-1", &model.ReportSafeRequest{})
	require.NoError(t, err)
	require.Len(t, scheduler.checks, 1)
	assert.Equal(t, t0.Add(29*time.Minute), scheduler.checks[0].deadline)

	// 旧任务在 T0+15 到期
	svc.now = func() time.Time { return t0.Add(15*time.Minute + time.Second) }
	require.NoError(t, svc.CheckDeadline(context.Background(), "act-1"))
	assert.Empty(t, dispatcher.dispatched)
	assert.Empty(t, store.alarmed)

	// 新 deadline 过期后才真正触发
	svc.now = func() time.Time { return t0.Add(30 * time.Minute) }
	require.NoError(t, svc.CheckDeadline(context.Background(), "act-1"))
	assert.Len(t, dispatcher.dispatched, 1)
}

func TestCheckDeadlineSkipsInactiveActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.alarmWins = true
	store.byPublicID["act-1"] = &model.Activity{
		PublicID:            "act-1",
		Status:              model.ActivityStatusFinished,
		NextCheckInDeadline: now.Add(-10 * time.Minute),
	}
	svc, _, dispatcher := newTestService(store, nil, now)

	require.NoError(t, svc.CheckDeadline(context.Background(), "act-1"))
	assert.Empty(t, dispatcher.dispatched)
}

func TestCheckDeadlineLostRaceDoesNotDispatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := newFakeActivityStore()
	store.alarmWins = false
	store.byPublicID["act-1"] = &model.Activity{
		PublicID:            "act-1",
		Status:              model.ActivityStatusActive,
		NextCheckInDeadline: now.Add(-1 * time.Minute),
	}
	svc, _, dispatcher := newTestService(store, nil, now)

	require.NoError(t, svc.CheckDeadline(context.Background(), "act-1"))
	assert.Empty(t, dispatcher.dispatched)
}

func TestCheckDeadlineUnknownActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc, _, dispatcher := newTestService(newFakeActivityStore(), nil, now)

	require.NoError(t, svc.CheckDeadline(context.Background(), "missing"))
	assert.Empty(t, dispatcher.dispatched)
}
