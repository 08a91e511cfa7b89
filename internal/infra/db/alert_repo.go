package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tickerwatch/notifier/internal/domain"
)

type AlertRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db, now: time.Now}
}

func (r *AlertRepository) ActiveForSymbols(ctx context.Context, symbols []string) ([]domain.AlertRule, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var models []alertRuleModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND symbol IN ?", true, symbols).
		Order("created_at").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	return mapRulesToDomain(models), nil
}

// ClaimTrigger is the single write path for a rule's trigger state. The
// WHERE clause re-validates eligibility so the update is a compare-and-swap:
// under concurrent attempts on the same rule, the database serializes the
// row update and exactly one statement matches. Zero rows affected means
// another racer won or the rule is outside its window, not an error.
func (r *AlertRepository) ClaimTrigger(ctx context.Context, ruleID string, freq domain.Frequency) (bool, error) {
	now := r.now().UTC()
	updates := map[string]any{
		"last_triggered_at": now,
		"trigger_count":     gorm.Expr("trigger_count + 1"),
		"updated_at":        now,
	}

	tx := r.db.WithContext(ctx).Model(&alertRuleModel{})
	switch freq {
	case domain.FrequencyOnce:
		// A once rule is retired in the same write that claims it.
		updates["is_active"] = false
		tx = tx.Where("id = ? AND last_triggered_at IS NULL", ruleID)
	case domain.FrequencyDaily, domain.FrequencyAlways:
		interval, _ := freq.RetriggerInterval()
		tx = tx.Where("id = ? AND (last_triggered_at IS NULL OR last_triggered_at < ?)",
			ruleID, now.Add(-interval))
	default:
		return false, fmt.Errorf("unknown frequency: %s", freq)
	}

	result := tx.Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("claim alert trigger: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func mapRulesToDomain(models []alertRuleModel) []domain.AlertRule {
	rules := make([]domain.AlertRule, 0, len(models))
	for _, model := range models {
		rules = append(rules, domain.AlertRule{
			ID:              model.ID,
			UserID:          model.UserID,
			WatchListID:     model.WatchListID,
			Symbol:          model.Symbol,
			Kind:            domain.AlertKind(model.AlertType),
			Conditions:      json.RawMessage(model.Conditions),
			IsActive:        model.IsActive,
			Frequency:       domain.Frequency(model.Frequency),
			NotifyEmail:     model.NotifyEmail,
			NotifyInApp:     model.NotifyInApp,
			Name:            model.Name,
			LastTriggeredAt: model.LastTriggeredAt,
			TriggerCount:    model.TriggerCount,
			CreatedAt:       model.CreatedAt,
			UpdatedAt:       model.UpdatedAt,
		})
	}
	return rules
}
