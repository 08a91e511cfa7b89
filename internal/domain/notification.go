package domain

import (
	"encoding/json"
	"time"
)

// AlertLog is the immutable audit record of one firing. Exactly one row is
// created per successful claim. NotificationSent is the only field updated
// after creation, and only by the delivery router.
type AlertLog struct {
	ID               string
	AlertRuleID      string
	UserID           string
	Symbol           string
	Kind             AlertKind
	TriggeredAt      time.Time
	ConditionMet     json.RawMessage
	MarketData       json.RawMessage
	NotificationSent bool
}

// NotificationPreferences is a user's delivery policy. At most one row per
// user; a missing row means defaults apply (email unreachable, no caps
// beyond the per-rule channel flags).
type NotificationPreferences struct {
	UserID             string
	EmailEnabled       bool
	EmailAddress       *string
	EmailVerified      bool
	QuietHoursEnabled  bool
	QuietHoursStart    string // HH:MM:SS
	QuietHoursEnd      string // HH:MM:SS
	QuietHoursTimezone string // IANA name, e.g. "America/New_York"
	MaxAlertsPerDay    int
	MaxEmailsPerDay    int
}

// InAppNotification is a queued item for the product's notification
// dropdown. Created once by the delivery router, consumed by the frontend.
type InAppNotification struct {
	ID         string
	UserID     string
	AlertLogID *string
	Type       string
	Title      string
	Message    string
	Data       json.RawMessage
	CreatedAt  time.Time
}

// UserEmail is the minimal account data email delivery needs.
type UserEmail struct {
	Email    string
	FullName string
}
