package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/domain"
	"github.com/tickerwatch/notifier/internal/metrics"
)

// Router applies per-user delivery policy to a freshly logged trigger and
// dispatches the requested channels. Claiming and auditing already happened
// by the time Deliver runs; nothing here rolls them back. The log row's
// notification_sent flag is updated to reflect whether any requested
// channel actually delivered, so the product can show "triggered but not
// delivered" instead of losing the event.
type Router struct {
	users  domain.UserRepository
	logs   domain.AlertLogRepository
	inApp  *InAppChannel
	email  *EmailChannel
	logger *zap.Logger
	now    func() time.Time
}

func NewRouter(users domain.UserRepository, logs domain.AlertLogRepository, inApp *InAppChannel, email *EmailChannel, logger *zap.Logger) *Router {
	return &Router{
		users:  users,
		logs:   logs,
		inApp:  inApp,
		email:  email,
		logger: logger,
		now:    time.Now,
	}
}

// Deliver routes one trigger. Returns whether any requested channel
// delivered; the returned error is informational (the trigger stays fired
// regardless).
func (r *Router) Deliver(ctx context.Context, rule *domain.AlertRule, logID string, quote *domain.SymbolQuote) (bool, error) {
	prefs, err := r.users.NotificationPreferences(ctx, rule.UserID)
	if err != nil {
		// Conservative fallback: behave as if the user has no row, which
		// keeps in-app working and suppresses email.
		r.logger.Warn("preferences lookup failed",
			zap.String("user_id", rule.UserID), zap.Error(err))
		prefs = nil
	}

	var delivered bool
	var firstErr error

	if rule.NotifyInApp {
		if err := r.inApp.Send(ctx, rule, logID, quote); err != nil {
			metrics.Deliveries.WithLabelValues("in_app", "failed").Inc()
			r.logger.Warn("in-app delivery failed",
				zap.String("alert_id", rule.ID), zap.Error(err))
			firstErr = err
		} else {
			metrics.Deliveries.WithLabelValues("in_app", "sent").Inc()
			delivered = true
		}
	}

	if rule.NotifyEmail {
		sent, err := r.deliverEmail(ctx, rule, quote, prefs)
		if err != nil {
			metrics.Deliveries.WithLabelValues("email", "failed").Inc()
			r.logger.Warn("email delivery failed",
				zap.String("alert_id", rule.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		} else if sent {
			metrics.Deliveries.WithLabelValues("email", "sent").Inc()
			delivered = true
		} else {
			metrics.Deliveries.WithLabelValues("email", "suppressed").Inc()
		}
	}

	if err := r.logs.MarkNotified(ctx, logID, delivered); err != nil {
		r.logger.Warn("failed to update notification_sent flag",
			zap.String("log_id", logID), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	return delivered, firstErr
}

// deliverEmail enforces the email policy chain: preferences row present,
// channel enabled, address verified, outside quiet hours, under the daily
// cap. Returns sent=false with nil error when policy suppresses the email.
func (r *Router) deliverEmail(ctx context.Context, rule *domain.AlertRule, quote *domain.SymbolQuote, prefs *domain.NotificationPreferences) (bool, error) {
	// No preferences row: email is assumed unreachable.
	if prefs == nil {
		return false, nil
	}
	if !prefs.EmailEnabled || !prefs.EmailVerified {
		return false, nil
	}

	// Without SMTP credentials nothing can be dispatched. Report
	// suppression so the sent flag stays false instead of claiming a
	// delivery that never happened.
	if !r.email.Configured() {
		r.logger.Debug("email suppressed, smtp not configured",
			zap.String("alert_id", rule.ID))
		return false, nil
	}

	if prefs.QuietHoursEnabled {
		quiet, err := inQuietHours(prefs, r.now())
		if err != nil {
			// A broken timezone setting should not silence alerts.
			r.logger.Warn("quiet hours check failed",
				zap.String("user_id", rule.UserID), zap.Error(err))
		} else if quiet {
			r.logger.Info("email suppressed by quiet hours",
				zap.String("alert_id", rule.ID),
				zap.String("user_id", rule.UserID))
			return false, nil
		}
	}

	if prefs.MaxEmailsPerDay > 0 {
		count, err := r.logs.CountNotifiedToday(ctx, rule.UserID)
		if err != nil {
			r.logger.Warn("daily email count lookup failed",
				zap.String("user_id", rule.UserID), zap.Error(err))
		} else if count >= prefs.MaxEmailsPerDay {
			r.logger.Info("email suppressed by daily cap",
				zap.String("alert_id", rule.ID),
				zap.String("user_id", rule.UserID),
				zap.Int("sent_today", count),
				zap.Int("max_per_day", prefs.MaxEmailsPerDay))
			return false, nil
		}
	}

	user, err := r.users.Email(ctx, rule.UserID)
	if err != nil {
		return false, fmt.Errorf("get user email: %w", err)
	}

	// The preferences address, when set, overrides the account email.
	to := user.Email
	if prefs.EmailAddress != nil && *prefs.EmailAddress != "" {
		to = *prefs.EmailAddress
	}

	if err := r.email.Send(rule, quote, to, user.FullName); err != nil {
		return false, err
	}
	return true, nil
}

// inQuietHours reports whether now falls inside the user's configured
// quiet window. Start/end are HH:MM:SS strings compared in the user's
// timezone; a window whose start is after its end wraps past midnight.
func inQuietHours(prefs *domain.NotificationPreferences, now time.Time) (bool, error) {
	loc, err := time.LoadLocation(prefs.QuietHoursTimezone)
	if err != nil {
		return false, fmt.Errorf("load timezone %s: %w", prefs.QuietHoursTimezone, err)
	}

	current := now.In(loc).Format("15:04:05")
	start := prefs.QuietHoursStart
	end := prefs.QuietHoursEnd

	if start <= end {
		// Same-day window, e.g. 08:00 to 22:00.
		return current >= start && current <= end, nil
	}
	// Overnight window, e.g. 22:00 to 08:00.
	return current >= start || current <= end, nil
}
