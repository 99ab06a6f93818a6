package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

type PaymentModel struct {
	ID             uint    `gorm:"primaryKey"`
	SID            string  `gorm:"uniqueIndex;size:50;not null"`
	SubscriptionID *uint   `gorm:"index"`
	TenantID       string  `gorm:"size:64;not null;index"`
	Amount         int64   `gorm:"not null"`
	Currency       string  `gorm:"size:3;not null"`
	PaymentStatus  string  `gorm:"size:20;not null;index"`
	Gateway        string  `gorm:"size:20;not null;uniqueIndex:idx_payment_external,priority:1"`
	ExternalID     *string `gorm:"size:128;uniqueIndex:idx_payment_external,priority:2"`
	IdempotencyKey string  `gorm:"size:128;not null;uniqueIndex"`
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	FailureReason  *string `gorm:"size:500"`
	Metadata       datatypes.JSON
	Version        int `gorm:"default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PaymentModel) TableName() string {
	return constants.TableBillingPayments
}
