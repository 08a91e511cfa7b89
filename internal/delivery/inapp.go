package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/domain"
)

// InAppChannel writes notifications to the in-app queue that the frontend
// notification dropdown polls. This channel is not rate-capped: a user who
// asked for in-app alerts always gets the row.
type InAppChannel struct {
	notifs domain.NotificationRepository
	logger *zap.Logger
}

func NewInAppChannel(notifs domain.NotificationRepository, logger *zap.Logger) *InAppChannel {
	return &InAppChannel{notifs: notifs, logger: logger}
}

// Send creates one in-app notification for a trigger.
func (c *InAppChannel) Send(ctx context.Context, rule *domain.AlertRule, logID string, quote *domain.SymbolQuote) error {
	n := &domain.InAppNotification{
		UserID:     rule.UserID,
		AlertLogID: &logID,
		Type:       "alert_triggered",
		Title:      buildTitle(rule),
		Message:    buildMessage(rule, quote),
		Data:       buildData(rule, quote),
	}

	if err := c.notifs.CreateInApp(ctx, n); err != nil {
		return fmt.Errorf("create in-app notification: %w", err)
	}

	c.logger.Info("in-app notification created",
		zap.String("alert_id", rule.ID),
		zap.String("symbol", rule.Symbol),
		zap.String("kind", string(rule.Kind)))
	return nil
}
