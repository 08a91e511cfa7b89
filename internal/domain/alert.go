package domain

import (
	"encoding/json"
	"time"
)

// AlertKind identifies which condition evaluator a rule uses.
type AlertKind string

const (
	KindPriceAbove     AlertKind = "price_above"
	KindPriceBelow     AlertKind = "price_below"
	KindPriceChangePct AlertKind = "price_change_pct"
	KindVolumeAbove    AlertKind = "volume_above"
	KindVolumeBelow    AlertKind = "volume_below"
	KindVolumeSpike    AlertKind = "volume_spike"
	KindNews           AlertKind = "news"
	KindEarnings       AlertKind = "earnings"
)

// Frequency controls how often a rule may re-trigger:
//
//	once:   triggers a single time, then the rule is deactivated
//	daily:  at most once per 24 hours
//	always: on every evaluation cycle, with a 5-minute cooldown between
//	         triggers so a noisy feed cannot storm a user with notifications
type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyAlways Frequency = "always"
)

const (
	dailyInterval  = 24 * time.Hour
	alwaysCooldown = 5 * time.Minute
)

// RetriggerInterval returns the minimum time that must elapse after a
// trigger before the rule becomes eligible again. ok is false for
// frequencies that never re-trigger (once) and for unknown values.
func (f Frequency) RetriggerInterval() (time.Duration, bool) {
	switch f {
	case FrequencyDaily:
		return dailyInterval, true
	case FrequencyAlways:
		return alwaysCooldown, true
	default:
		return 0, false
	}
}

// Valid reports whether f is one of the known frequency policies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyAlways:
		return true
	}
	return false
}

// AlertRule is a user's standing watch condition on one symbol.
// LastTriggeredAt, TriggerCount and IsActive are mutated only through
// AlertRepository.ClaimTrigger; no other component writes them.
type AlertRule struct {
	ID          string
	UserID      string
	WatchListID string
	Symbol      string
	Kind        AlertKind
	Conditions  json.RawMessage
	IsActive    bool
	Frequency   Frequency
	NotifyEmail bool
	NotifyInApp bool
	Name        string

	LastTriggeredAt *time.Time
	TriggerCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
