package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/tickerwatch/notifier/internal/domain"
)

// fakeAlertRepo is an in-memory stand-in for the alert_rules table. Its
// ClaimTrigger mirrors the store's conditional-write semantics under a
// mutex, so concurrency tests exercise the real single-winner contract.
type fakeAlertRepo struct {
	mu    sync.Mutex
	rules map[string]*domain.AlertRule
	now   func() time.Time

	fetchErr error
	activeFn func(symbols []string) ([]domain.AlertRule, error)
	claimErr map[string]error

	claimAttempts int
	claimsWon     int
}

func newFakeAlertRepo(now func() time.Time, rules ...*domain.AlertRule) *fakeAlertRepo {
	f := &fakeAlertRepo{rules: make(map[string]*domain.AlertRule), now: now}
	for _, r := range rules {
		f.rules[r.ID] = r
	}
	return f
}

func (f *fakeAlertRepo) ActiveForSymbols(_ context.Context, symbols []string) ([]domain.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.activeFn != nil {
		return f.activeFn(symbols)
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []domain.AlertRule
	for _, r := range f.rules {
		if r.IsActive && want[r.Symbol] {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) ClaimTrigger(_ context.Context, ruleID string, freq domain.Frequency) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimAttempts++

	if err := f.claimErr[ruleID]; err != nil {
		return false, err
	}

	rule, ok := f.rules[ruleID]
	if !ok {
		return false, nil
	}

	now := f.now()
	eligible := false
	switch freq {
	case domain.FrequencyOnce:
		eligible = rule.LastTriggeredAt == nil
	case domain.FrequencyDaily, domain.FrequencyAlways:
		interval, _ := freq.RetriggerInterval()
		eligible = rule.LastTriggeredAt == nil || now.Sub(*rule.LastTriggeredAt) >= interval
	}
	if !eligible {
		return false, nil
	}

	triggered := now
	rule.LastTriggeredAt = &triggered
	rule.TriggerCount++
	if freq == domain.FrequencyOnce {
		rule.IsActive = false
	}
	f.claimsWon++
	return true, nil
}

type fakeLogRepo struct {
	mu        sync.Mutex
	logs      []*domain.AlertLog
	createErr error

	notified map[string]bool

	triggeredToday   int
	notifiedToday    int
	countTriggerErr  error
	countNotifiedErr error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{notified: make(map[string]bool)}
}

func (f *fakeLogRepo) Create(_ context.Context, log *domain.AlertLog) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := "log-" + log.AlertRuleID
	log.ID = id
	f.logs = append(f.logs, log)
	return id, nil
}

func (f *fakeLogRepo) MarkNotified(_ context.Context, logID string, sent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified[logID] = sent
	return nil
}

func (f *fakeLogRepo) CountTriggeredToday(context.Context, string) (int, error) {
	return f.triggeredToday, f.countTriggerErr
}

func (f *fakeLogRepo) CountNotifiedToday(context.Context, string) (int, error) {
	return f.notifiedToday, f.countNotifiedErr
}

func (f *fakeLogRepo) logCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

type deliverCall struct {
	RuleID string
	LogID  string
}

type fakeRouter struct {
	mu        sync.Mutex
	calls     []deliverCall
	delivered bool
	err       error
}

func (f *fakeRouter) Deliver(_ context.Context, rule *domain.AlertRule, logID string, _ *domain.SymbolQuote) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, deliverCall{RuleID: rule.ID, LogID: logID})
	return f.delivered, f.err
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
