package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/config"
	"github.com/tickerwatch/notifier/internal/domain"
)

type fakeUserRepo struct {
	prefs    *domain.NotificationPreferences
	prefsErr error
	user     *domain.UserEmail
	userErr  error
}

func (f *fakeUserRepo) NotificationPreferences(context.Context, string) (*domain.NotificationPreferences, error) {
	return f.prefs, f.prefsErr
}

func (f *fakeUserRepo) Email(context.Context, string) (*domain.UserEmail, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.user == nil {
		return &domain.UserEmail{Email: "user@example.com", FullName: "Test User"}, nil
	}
	return f.user, nil
}

type fakeLogRepo struct {
	notifiedToday int
	countErr      error

	mu       sync.Mutex
	notified map[string]bool
}

func (f *fakeLogRepo) Create(context.Context, *domain.AlertLog) (string, error) {
	return "log-1", nil
}

func (f *fakeLogRepo) MarkNotified(_ context.Context, logID string, sent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = make(map[string]bool)
	}
	f.notified[logID] = sent
	return nil
}

func (f *fakeLogRepo) CountTriggeredToday(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeLogRepo) CountNotifiedToday(context.Context, string) (int, error) {
	return f.notifiedToday, f.countErr
}

type fakeNotifRepo struct {
	created []*domain.InAppNotification
	err     error
}

func (f *fakeNotifRepo) CreateInApp(_ context.Context, n *domain.InAppNotification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

// sendRecorder captures outbound emails in place of a real SMTP dial.
type sendRecorder struct {
	mu    sync.Mutex
	sends []string // recipient addresses
	err   error
}

func (r *sendRecorder) send(to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sends = append(r.sends, to)
	return nil
}

func (r *sendRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func sampleRule() *domain.AlertRule {
	return &domain.AlertRule{
		ID:          "a1",
		UserID:      "user-1",
		WatchListID: "wl-1",
		Symbol:      "AAPL",
		Kind:        domain.KindPriceAbove,
		Conditions:  json.RawMessage(`{"threshold": 150}`),
		Frequency:   domain.FrequencyDaily,
		Name:        "AAPL breakout",
	}
}

func sampleQuote() *domain.SymbolQuote {
	return &domain.SymbolQuote{
		Price:     decimal.RequireFromString("151.25"),
		Volume:    2_500_000,
		ChangePct: decimal.RequireFromString("1.8"),
	}
}

func emailEnabledPrefs() *domain.NotificationPreferences {
	return &domain.NotificationPreferences{
		UserID:          "user-1",
		EmailEnabled:    true,
		EmailVerified:   true,
		MaxEmailsPerDay: 10,
	}
}

func newTestRouter(users *fakeUserRepo, logs *fakeLogRepo, notifs *fakeNotifRepo, rec *sendRecorder) *Router {
	logger := zap.NewNop()
	email := NewEmailChannel(config.SMTPConfig{Host: "smtp.test", Password: "secret", Port: 587}, "https://app.test", logger)
	email.sendFunc = rec.send
	inApp := NewInAppChannel(notifs, logger)
	return NewRouter(users, logs, inApp, email, logger)
}

func TestDeliver_InAppOnly(t *testing.T) {
	users := &fakeUserRepo{}
	logs := &fakeLogRepo{}
	notifs := &fakeNotifRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)

	rule := sampleRule()
	rule.NotifyInApp = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	require.Len(t, notifs.created, 1)
	assert.Equal(t, "alert_triggered", notifs.created[0].Type)
	assert.Zero(t, rec.count())
	assert.True(t, logs.notified["log-1"])
}

func TestDeliver_NoPreferencesSuppressesEmail(t *testing.T) {
	// Absent preferences row: email is assumed unreachable, in-app still works.
	users := &fakeUserRepo{prefs: nil}
	logs := &fakeLogRepo{}
	notifs := &fakeNotifRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)

	rule := sampleRule()
	rule.NotifyInApp = true
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Zero(t, rec.count())
	assert.Len(t, notifs.created, 1)
}

func TestDeliver_EmailSent(t *testing.T) {
	users := &fakeUserRepo{prefs: emailEnabledPrefs()}
	logs := &fakeLogRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, 1, rec.count())
	assert.True(t, logs.notified["log-1"])
}

func TestDeliver_UnconfiguredSMTPIsSuppression(t *testing.T) {
	// Without SMTP credentials an email-only rule must surface as
	// undelivered; the sent flag may never claim a dispatch that did not
	// happen.
	users := &fakeUserRepo{prefs: emailEnabledPrefs()}
	logs := &fakeLogRepo{}
	rec := &sendRecorder{}
	logger := zap.NewNop()
	email := NewEmailChannel(config.SMTPConfig{}, "https://app.test", logger)
	email.sendFunc = rec.send
	router := NewRouter(users, logs, NewInAppChannel(&fakeNotifRepo{}, logger), email, logger)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Zero(t, rec.count())
	assert.False(t, logs.notified["log-1"])
}

func TestDeliver_EmailRequiresVerifiedAddress(t *testing.T) {
	prefs := emailEnabledPrefs()
	prefs.EmailVerified = false
	users := &fakeUserRepo{prefs: prefs}
	logs := &fakeLogRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Zero(t, rec.count())
	assert.False(t, logs.notified["log-1"])
}

func TestDeliver_DailyEmailCap(t *testing.T) {
	prefs := emailEnabledPrefs()
	prefs.MaxEmailsPerDay = 1
	users := &fakeUserRepo{prefs: prefs}
	logs := &fakeLogRepo{notifiedToday: 1} // one email already went out today
	notifs := &fakeNotifRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)

	rule := sampleRule()
	rule.NotifyEmail = true
	rule.NotifyInApp = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	// In-app still lands and counts as delivered; the email is capped.
	assert.True(t, delivered)
	assert.Zero(t, rec.count())
	assert.Len(t, notifs.created, 1)
	assert.True(t, logs.notified["log-1"])
}

func TestDeliver_CapCountLookupFailureStillSends(t *testing.T) {
	users := &fakeUserRepo{prefs: emailEnabledPrefs()}
	logs := &fakeLogRepo{countErr: errors.New("db timeout")}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, 1, rec.count())
}

func TestDeliver_QuietHoursSuppressEmailOnly(t *testing.T) {
	prefs := emailEnabledPrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00:00"
	prefs.QuietHoursEnd = "08:00:00"
	prefs.QuietHoursTimezone = "UTC"

	users := &fakeUserRepo{prefs: prefs}
	logs := &fakeLogRepo{}
	notifs := &fakeNotifRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)
	router.now = func() time.Time {
		return time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	}

	rule := sampleRule()
	rule.NotifyEmail = true
	rule.NotifyInApp = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered, "in-app must proceed during quiet hours")
	assert.Zero(t, rec.count())
	assert.Len(t, notifs.created, 1)
}

func TestDeliver_InvalidQuietHoursTimezoneStillSends(t *testing.T) {
	prefs := emailEnabledPrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00:00"
	prefs.QuietHoursEnd = "08:00:00"
	prefs.QuietHoursTimezone = "Invalid/Timezone"

	users := &fakeUserRepo{prefs: prefs}
	rec := &sendRecorder{}
	router := newTestRouter(users, &fakeLogRepo{}, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, 1, rec.count())
}

func TestDeliver_PreferencesAddressOverridesAccountEmail(t *testing.T) {
	override := "alerts@alt.example.com"
	prefs := emailEnabledPrefs()
	prefs.EmailAddress = &override

	users := &fakeUserRepo{prefs: prefs}
	rec := &sendRecorder{}
	router := newTestRouter(users, &fakeLogRepo{}, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	_, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, override, rec.sends[0])
}

func TestDeliver_SendFailureLeavesFlagFalse(t *testing.T) {
	users := &fakeUserRepo{prefs: emailEnabledPrefs()}
	logs := &fakeLogRepo{}
	rec := &sendRecorder{err: errors.New("smtp connection refused")}
	router := newTestRouter(users, logs, &fakeNotifRepo{}, rec)

	rule := sampleRule()
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	assert.Error(t, err)
	assert.False(t, delivered)
	assert.False(t, logs.notified["log-1"])
}

func TestDeliver_InAppFailureDoesNotBlockEmail(t *testing.T) {
	users := &fakeUserRepo{prefs: emailEnabledPrefs()}
	logs := &fakeLogRepo{}
	notifs := &fakeNotifRepo{err: errors.New("insert failed")}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)

	rule := sampleRule()
	rule.NotifyInApp = true
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	assert.Error(t, err)
	assert.True(t, delivered, "email delivery still counts")
	assert.Equal(t, 1, rec.count())
	assert.True(t, logs.notified["log-1"])
}

func TestDeliver_PreferencesLookupFailureFallsBackToInAppOnly(t *testing.T) {
	users := &fakeUserRepo{prefsErr: errors.New("db down")}
	logs := &fakeLogRepo{}
	notifs := &fakeNotifRepo{}
	rec := &sendRecorder{}
	router := newTestRouter(users, logs, notifs, rec)

	rule := sampleRule()
	rule.NotifyInApp = true
	rule.NotifyEmail = true

	delivered, err := router.Deliver(context.Background(), rule, "log-1", sampleQuote())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Zero(t, rec.count())
	assert.Len(t, notifs.created, 1)
}

func TestInQuietHours(t *testing.T) {
	prefs := &domain.NotificationPreferences{
		QuietHoursEnabled:  true,
		QuietHoursTimezone: "UTC",
	}

	cases := []struct {
		name       string
		start, end string
		at         time.Time
		want       bool
	}{
		{"same-day window inside", "08:00:00", "22:00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"same-day window outside", "08:00:00", "22:00:00", time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC), false},
		{"overnight window before midnight", "22:00:00", "08:00:00", time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC), true},
		{"overnight window after midnight", "22:00:00", "08:00:00", time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), true},
		{"overnight window daytime", "22:00:00", "08:00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prefs.QuietHoursStart = tc.start
			prefs.QuietHoursEnd = tc.end
			got, err := inQuietHours(prefs, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInQuietHours_BadTimezone(t *testing.T) {
	prefs := &domain.NotificationPreferences{
		QuietHoursEnabled:  true,
		QuietHoursStart:    "22:00:00",
		QuietHoursEnd:      "08:00:00",
		QuietHoursTimezone: "Not/AZone",
	}
	_, err := inQuietHours(prefs, time.Now())
	assert.Error(t, err)
}
