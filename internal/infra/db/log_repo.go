package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tickerwatch/notifier/internal/domain"
)

type AlertLogRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAlertLogRepository(db *gorm.DB) *AlertLogRepository {
	return &AlertLogRepository{db: db, now: time.Now}
}

func (r *AlertLogRepository) Create(ctx context.Context, log *domain.AlertLog) (string, error) {
	model := alertLogModel{
		ID:               uuid.NewString(),
		AlertRuleID:      log.AlertRuleID,
		UserID:           log.UserID,
		Symbol:           log.Symbol,
		AlertType:        string(log.Kind),
		TriggeredAt:      r.now().UTC(),
		ConditionMet:     datatypes.JSON(log.ConditionMet),
		MarketData:       datatypes.JSON(log.MarketData),
		NotificationSent: log.NotificationSent,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("create alert log: %w", err)
	}
	log.ID = model.ID
	log.TriggeredAt = model.TriggeredAt
	return model.ID, nil
}

func (r *AlertLogRepository) MarkNotified(ctx context.Context, logID string, sent bool) error {
	result := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("id = ?", logID).
		Update("notification_sent", sent)
	if result.Error != nil {
		return fmt.Errorf("update alert log notification_sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertLogRepository) CountTriggeredToday(ctx context.Context, userID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("user_id = ? AND triggered_at >= ?", userID, r.todayStart()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count today alerts: %w", err)
	}
	return int(count), nil
}

func (r *AlertLogRepository) CountNotifiedToday(ctx context.Context, userID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("user_id = ? AND triggered_at >= ? AND notification_sent = ?", userID, r.todayStart(), true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count today emails: %w", err)
	}
	return int(count), nil
}

// todayStart returns the start of the current UTC day. Daily caps reset at
// UTC midnight regardless of the user's quiet-hours timezone.
func (r *AlertLogRepository) todayStart() time.Time {
	now := r.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
