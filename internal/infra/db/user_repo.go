package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tickerwatch/notifier/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// NotificationPreferences returns nil, nil when the user has never saved
// preferences; the router falls back to conservative defaults then.
func (r *UserRepository) NotificationPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	var model notificationPreferencesModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query notification preferences: %w", err)
	}
	return &domain.NotificationPreferences{
		UserID:             model.UserID,
		EmailEnabled:       model.EmailEnabled,
		EmailAddress:       model.EmailAddress,
		EmailVerified:      model.EmailVerified,
		QuietHoursEnabled:  model.QuietHoursEnabled,
		QuietHoursStart:    model.QuietHoursStart,
		QuietHoursEnd:      model.QuietHoursEnd,
		QuietHoursTimezone: model.QuietHoursTimezone,
		MaxAlertsPerDay:    model.MaxAlertsPerDay,
		MaxEmailsPerDay:    model.MaxEmailsPerDay,
	}, nil
}

func (r *UserRepository) Email(ctx context.Context, userID string) (*domain.UserEmail, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user email: %w", err)
	}
	return &domain.UserEmail{Email: model.Email, FullName: model.FullName}, nil
}
