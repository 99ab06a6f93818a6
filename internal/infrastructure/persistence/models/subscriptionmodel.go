package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for billing subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID             uint       `gorm:"primarykey"`
	SID            string     `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	TenantID       string     `gorm:"not null;size:64;uniqueIndex:idx_subscription_external,priority:1;index:idx_subscription_tenant"`
	PlanRef        string     `gorm:"size:100"`
	Gateway        string     `gorm:"not null;size:20;uniqueIndex:idx_subscription_external,priority:2"`
	ExternalID     string     `gorm:"not null;size:128;uniqueIndex:idx_subscription_external,priority:3"`
	CustomerRef    string     `gorm:"size:128"`
	Status         string     `gorm:"not null;size:20;index:idx_subscription_due,priority:1"`
	Price          int64      `gorm:"not null"`
	Currency       string     `gorm:"not null;size:3"`
	DiscountAmount int64      `gorm:"not null;default:0"`
	DiscountKind   string     `gorm:"not null;size:20;default:none"`
	DiscountMonths int        `gorm:"not null;default:0"`
	MonthsElapsed  int        `gorm:"not null;default:0"`
	BillingPeriod  string     `gorm:"not null;size:20"`
	NextChargeAt   *time.Time `gorm:"index:idx_subscription_due,priority:2"`
	FailedAttempts int        `gorm:"not null;default:0"`
	RetryCycles    int        `gorm:"not null;default:0"`
	TotalPaid      int64      `gorm:"not null;default:0"`
	AutoCharge     bool       `gorm:"not null;default:false"`
	Version        int        `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableBillingSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
