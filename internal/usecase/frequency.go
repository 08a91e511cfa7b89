package usecase

import (
	"time"

	"github.com/tickerwatch/notifier/internal/domain"
)

// eligibleNow is the frequency gate: a cheap pre-filter over the rule's
// last-fired time so most ineligible rules never reach storage. It is
// advisory only: the claim re-validates the same predicate atomically,
// because this read and the claim's write are not atomic with each other.
func eligibleNow(rule *domain.AlertRule, now time.Time) bool {
	switch rule.Frequency {
	case domain.FrequencyOnce:
		return rule.LastTriggeredAt == nil
	case domain.FrequencyDaily, domain.FrequencyAlways:
		if rule.LastTriggeredAt == nil {
			return true
		}
		interval, _ := rule.Frequency.RetriggerInterval()
		return now.Sub(*rule.LastTriggeredAt) >= interval
	default:
		return false
	}
}
