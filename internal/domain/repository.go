package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// AlertRepository is the engine's contract over the alert_rules table.
type AlertRepository interface {
	// ActiveForSymbols bulk-fetches active rules whose symbol is in the
	// given set. One query per batch, never per rule.
	ActiveForSymbols(ctx context.Context, symbols []string) ([]AlertRule, error)

	// ClaimTrigger attempts the atomic conditional write that grants the
	// caller the right to fire the rule for its current eligibility window:
	// it sets last_triggered_at, increments trigger_count, and for "once"
	// rules clears is_active, all in a single statement whose predicate
	// re-validates eligibility. Among any number of concurrent callers
	// exactly one gets claimed=true; the rest get claimed=false without
	// error. No in-process lock backs this; correctness holds across
	// independent processes racing on the same rule.
	ClaimTrigger(ctx context.Context, ruleID string, freq Frequency) (bool, error)
}

// AlertLogRepository is the contract over the alert_logs table.
type AlertLogRepository interface {
	// Create persists one immutable log row and returns its identifier.
	Create(ctx context.Context, log *AlertLog) (string, error)

	// MarkNotified flips the notification_sent flag on an existing row.
	MarkNotified(ctx context.Context, logID string, sent bool) error

	// CountTriggeredToday returns how many of the user's alerts fired
	// since UTC midnight.
	CountTriggeredToday(ctx context.Context, userID string) (int, error)

	// CountNotifiedToday returns how many of today's firings were
	// delivered, used for the per-user daily email cap.
	CountNotifiedToday(ctx context.Context, userID string) (int, error)
}

// UserRepository reads account data owned by the (external) settings
// surface. Read-only from this engine's perspective.
type UserRepository interface {
	// NotificationPreferences returns nil, nil when the user has no row.
	NotificationPreferences(ctx context.Context, userID string) (*NotificationPreferences, error)

	// Email returns the user's account email and display name.
	Email(ctx context.Context, userID string) (*UserEmail, error)
}

// NotificationRepository writes to the in-app notification queue.
type NotificationRepository interface {
	CreateInApp(ctx context.Context, n *InAppNotification) error
}
