package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// SubscriptionHistoryModel represents the database persistence model for subscription history.
// Rows are append-only.
type SubscriptionHistoryModel struct {
	ID             uint    `gorm:"primarykey"`
	SubscriptionID uint    `gorm:"not null;index:idx_subscription_history"`
	EventType      string  `gorm:"not null;size:50;index:idx_history_event"`
	FromStatus     string  `gorm:"not null;size:20"`
	ToStatus       string  `gorm:"not null;size:20"`
	Reason         *string `gorm:"size:500"`
	Metadata       datatypes.JSON
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionHistoryModel) TableName() string {
	return constants.TableSubscriptionHistory
}

// BeforeCreate hook for GORM
func (sh *SubscriptionHistoryModel) BeforeCreate(tx *gorm.DB) error {
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now()
	}
	return nil
}
