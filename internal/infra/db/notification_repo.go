package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tickerwatch/notifier/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateInApp(ctx context.Context, n *domain.InAppNotification) error {
	model := inAppNotificationModel{
		ID:         uuid.NewString(),
		UserID:     n.UserID,
		AlertLogID: n.AlertLogID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		Data:       datatypes.JSON(n.Data),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create in-app notification: %w", err)
	}
	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return nil
}
