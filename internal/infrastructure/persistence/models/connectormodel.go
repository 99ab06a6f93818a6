package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// ConnectorModel represents the database persistence model for payment gateway connectors.
// Credential and webhook secret columns only ever hold AES-GCM output.
type ConnectorModel struct {
	ID                  uint   `gorm:"primarykey"`
	SID                 string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: conn_xxx"`
	TenantID            string `gorm:"not null;size:64;index:idx_connector_lookup,priority:1"`
	Gateway             string `gorm:"not null;size:20;index:idx_connector_lookup,priority:2"`
	Environment         string `gorm:"not null;size:20;index:idx_connector_lookup,priority:3"`
	CredentialsCipher   []byte `gorm:"not null"`
	CredentialsIV       []byte `gorm:"not null;size:12"`
	CredentialsTag      []byte `gorm:"not null;size:16"`
	WebhookSecretCipher []byte
	WebhookSecretIV     []byte  `gorm:"size:12"`
	WebhookSecretTag    []byte  `gorm:"size:16"`
	CredentialHint      string  `gorm:"size:32"`
	IsPrincipal         bool    `gorm:"not null;default:false"`
	Verified            bool    `gorm:"not null;default:false"`
	Active              bool    `gorm:"not null;index:idx_connector_lookup,priority:4"`
	ErrorCount          int     `gorm:"not null;default:0"`
	LastError           *string `gorm:"size:500"`
	LastVerifiedAt      *time.Time
	Version             int `gorm:"not null;default:1"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName specifies the table name for GORM
func (ConnectorModel) TableName() string {
	return constants.TablePaymentConnectors
}

// BeforeCreate hook for GORM
func (c *ConnectorModel) BeforeCreate(tx *gorm.DB) error {
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}
