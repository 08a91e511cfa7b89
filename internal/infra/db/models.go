package db

import (
	"time"

	"gorm.io/datatypes"
)

type alertRuleModel struct {
	ID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      string         `gorm:"type:uuid;index:idx_alert_rules_symbol_active,priority:3;not null"`
	WatchListID string         `gorm:"type:uuid"`
	Symbol      string         `gorm:"size:12;index:idx_alert_rules_symbol_active,priority:1;not null"`
	AlertType   string         `gorm:"size:32;not null"`
	Conditions  datatypes.JSON `gorm:"not null"`
	IsActive    bool           `gorm:"index:idx_alert_rules_symbol_active,priority:2;not null"`
	Frequency   string         `gorm:"size:16;not null"`
	NotifyEmail bool           `gorm:"not null"`
	NotifyInApp bool           `gorm:"not null"`
	Name        string         `gorm:"size:255;not null"`

	LastTriggeredAt *time.Time
	TriggerCount    int `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (alertRuleModel) TableName() string { return "alert_rules" }

type alertLogModel struct {
	ID               string         `gorm:"type:uuid;primaryKey"`
	AlertRuleID      string         `gorm:"type:uuid;index;not null"`
	UserID           string         `gorm:"type:uuid;index:idx_alert_logs_user_triggered,priority:1;not null"`
	Symbol           string         `gorm:"size:12;not null"`
	AlertType        string         `gorm:"size:32;not null"`
	TriggeredAt      time.Time      `gorm:"index:idx_alert_logs_user_triggered,priority:2;not null"`
	ConditionMet     datatypes.JSON `gorm:"not null"`
	MarketData       datatypes.JSON `gorm:"not null"`
	NotificationSent bool           `gorm:"not null;default:false"`
	IsRead           bool           `gorm:"not null;default:false"`
	IsDismissed      bool           `gorm:"not null;default:false"`
}

func (alertLogModel) TableName() string { return "alert_logs" }

type notificationPreferencesModel struct {
	UserID             string  `gorm:"type:uuid;primaryKey"`
	EmailEnabled       bool    `gorm:"not null;default:true"`
	EmailAddress       *string `gorm:"size:255"`
	EmailVerified      bool    `gorm:"not null;default:false"`
	QuietHoursEnabled  bool    `gorm:"not null;default:false"`
	QuietHoursStart    string  `gorm:"size:8;default:'22:00:00'"`
	QuietHoursEnd      string  `gorm:"size:8;default:'08:00:00'"`
	QuietHoursTimezone string  `gorm:"size:64;default:'UTC'"`
	MaxAlertsPerDay    int     `gorm:"not null;default:0"`
	MaxEmailsPerDay    int     `gorm:"not null;default:0"`
}

func (notificationPreferencesModel) TableName() string { return "notification_preferences" }

// userModel is a read-only projection of the account table; this service
// never writes users.
type userModel struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	Email    string `gorm:"size:255;not null"`
	FullName string `gorm:"size:255"`
}

func (userModel) TableName() string { return "users" }

type inAppNotificationModel struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	UserID     string         `gorm:"type:uuid;index;not null"`
	AlertLogID *string        `gorm:"type:uuid"`
	Type       string         `gorm:"size:32;not null"`
	Title      string         `gorm:"size:255;not null"`
	Message    string         `gorm:"not null"`
	Data       datatypes.JSON `gorm:"not null"`
	IsRead     bool           `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (inAppNotificationModel) TableName() string { return "notification_queue" }
