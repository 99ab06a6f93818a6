package connector

import (
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/id"
)

// Connector holds one tenant's encrypted credentials for one gateway
// environment. Plaintext secrets never live on this type.
type Connector struct {
	id             uint
	sid            string
	tenantID       string
	gateway        shared.Gateway
	environment    shared.Environment
	credentials    EncryptedBlob
	webhookSecret  *EncryptedBlob
	credentialHint string
	isPrincipal    bool
	verified       bool
	active         bool
	errorCount     int
	lastError      *string
	lastVerifiedAt *time.Time
	version        int
	createdAt      time.Time
	updatedAt      time.Time
}

func NewConnector(
	tenantID string,
	gateway shared.Gateway,
	environment shared.Environment,
	credentials EncryptedBlob,
	webhookSecret *EncryptedBlob,
	hint string,
) (*Connector, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if !gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", gateway)
	}
	if !environment.IsValid() {
		return nil, fmt.Errorf("invalid environment: %s", environment)
	}
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	if webhookSecret != nil {
		if err := webhookSecret.Validate(); err != nil {
			return nil, fmt.Errorf("webhook secret: %w", err)
		}
	}

	sid, err := id.NewConnectorID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate connector SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Connector{
		sid:            sid,
		tenantID:       tenantID,
		gateway:        gateway,
		environment:    environment,
		credentials:    credentials,
		webhookSecret:  webhookSecret,
		credentialHint: hint,
		active:         true,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructConnectorParams carries persisted column values.
type ReconstructConnectorParams struct {
	ID             uint
	SID            string
	TenantID       string
	Gateway        shared.Gateway
	Environment    shared.Environment
	Credentials    EncryptedBlob
	WebhookSecret  *EncryptedBlob
	CredentialHint string
	IsPrincipal    bool
	Verified       bool
	Active         bool
	ErrorCount     int
	LastError      *string
	LastVerifiedAt *time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructConnector(p ReconstructConnectorParams) (*Connector, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("connector ID cannot be zero")
	}
	if !p.Gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", p.Gateway)
	}
	if !p.Environment.IsValid() {
		return nil, fmt.Errorf("invalid environment: %s", p.Environment)
	}
	return &Connector{
		id:             p.ID,
		sid:            p.SID,
		tenantID:       p.TenantID,
		gateway:        p.Gateway,
		environment:    p.Environment,
		credentials:    p.Credentials,
		webhookSecret:  p.WebhookSecret,
		credentialHint: p.CredentialHint,
		isPrincipal:    p.IsPrincipal,
		verified:       p.Verified,
		active:         p.Active,
		errorCount:     p.ErrorCount,
		lastError:      p.LastError,
		lastVerifiedAt: p.LastVerifiedAt,
		version:        p.Version,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}, nil
}

// RotateCredentials replaces the sealed credentials. A nil webhookSecret keeps
// the current one. Verification must be redone afterwards.
func (c *Connector) RotateCredentials(credentials EncryptedBlob, webhookSecret *EncryptedBlob, hint string) error {
	if !c.active {
		return ErrConnectorInactive
	}
	if err := credentials.Validate(); err != nil {
		return err
	}
	if webhookSecret != nil {
		if err := webhookSecret.Validate(); err != nil {
			return fmt.Errorf("webhook secret: %w", err)
		}
		c.webhookSecret = webhookSecret
	}
	c.credentials = credentials
	c.credentialHint = hint
	c.verified = false
	c.errorCount = 0
	c.lastError = nil
	c.touch()
	return nil
}

func (c *Connector) MarkPrincipal() error {
	if !c.active {
		return ErrConnectorInactive
	}
	if c.isPrincipal {
		return nil
	}
	c.isPrincipal = true
	c.touch()
	return nil
}

func (c *Connector) Deactivate() {
	if !c.active {
		return
	}
	c.active = false
	c.isPrincipal = false
	c.touch()
}

func (c *Connector) MarkVerified(at time.Time) {
	c.verified = true
	c.errorCount = 0
	c.lastError = nil
	c.lastVerifiedAt = &at
	c.touch()
}

func (c *Connector) RecordVerificationFailure(message string, at time.Time) {
	c.verified = false
	c.errorCount++
	c.lastError = &message
	c.lastVerifiedAt = &at
	c.touch()
}

// SetID sets the connector ID (only for persistence layer use)
func (c *Connector) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("connector ID is already set")
	}
	c.id = id
	return nil
}

func (c *Connector) touch() {
	c.version++
	c.updatedAt = biztime.NowUTC()
}

func (c *Connector) ID() uint                        { return c.id }
func (c *Connector) SID() string                     { return c.sid }
func (c *Connector) TenantID() string                { return c.tenantID }
func (c *Connector) Gateway() shared.Gateway         { return c.gateway }
func (c *Connector) Environment() shared.Environment { return c.environment }
func (c *Connector) Credentials() EncryptedBlob      { return c.credentials }
func (c *Connector) WebhookSecret() *EncryptedBlob   { return c.webhookSecret }
func (c *Connector) CredentialHint() string          { return c.credentialHint }
func (c *Connector) IsPrincipal() bool               { return c.isPrincipal }
func (c *Connector) IsVerified() bool                { return c.verified }
func (c *Connector) IsActive() bool                  { return c.active }
func (c *Connector) ErrorCount() int                 { return c.errorCount }
func (c *Connector) LastError() *string              { return c.lastError }
func (c *Connector) LastVerifiedAt() *time.Time      { return c.lastVerifiedAt }
func (c *Connector) Version() int                    { return c.version }
func (c *Connector) CreatedAt() time.Time            { return c.createdAt }
func (c *Connector) UpdatedAt() time.Time            { return c.updatedAt }
