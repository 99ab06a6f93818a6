package models

import (
	"time"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// ProcessedWebhookEventModel is the dedup ledger row for one gateway delivery.
// (gateway, request_id) is unique.
type ProcessedWebhookEventModel struct {
	ID         uint      `gorm:"primaryKey"`
	Gateway    string    `gorm:"size:20;not null;uniqueIndex:idx_webhook_request,priority:1"`
	RequestID  string    `gorm:"size:128;not null;uniqueIndex:idx_webhook_request,priority:2"`
	EventType  string    `gorm:"size:100"`
	DataID     string    `gorm:"size:128"`
	TenantID   *string   `gorm:"size:64;index"`
	Outcome    string    `gorm:"size:20;not null;index:idx_webhook_outcome,priority:1"`
	Message    *string   `gorm:"size:500"`
	SourceIP   string    `gorm:"size:45"`
	Accepted   bool      `gorm:"not null;default:false"`
	ReceivedAt time.Time `gorm:"not null;index:idx_webhook_outcome,priority:2"`
}

func (ProcessedWebhookEventModel) TableName() string {
	return constants.TableProcessedWebhookEvents
}
