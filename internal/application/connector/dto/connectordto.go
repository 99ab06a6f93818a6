// Package dto provides data transfer objects for connector administration.
package dto

import (
	"time"

	"github.com/orris-inc/paybridge/internal/domain/connector"
)

// ConnectorDTO exposes a connector without any secret material.
type ConnectorDTO struct {
	ID             string     `json:"id"` // Prefixed ID (e.g., "conn_xK9mP2vL3nQ")
	TenantID       string     `json:"tenant_id"`
	Gateway        string     `json:"gateway"`
	Environment    string     `json:"environment"`
	CredentialHint string     `json:"credential_hint"`
	HasWebhookKey  bool       `json:"has_webhook_secret"`
	IsPrincipal    bool       `json:"is_principal"`
	Verified       bool       `json:"verified"`
	Active         bool       `json:"active"`
	ErrorCount     int        `json:"error_count"`
	LastError      *string    `json:"last_error,omitempty"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
}

func ToConnectorDTO(c *connector.Connector) *ConnectorDTO {
	if c == nil {
		return nil
	}
	return &ConnectorDTO{
		ID:             c.SID(),
		TenantID:       c.TenantID(),
		Gateway:        c.Gateway().String(),
		Environment:    string(c.Environment()),
		CredentialHint: c.CredentialHint(),
		HasWebhookKey:  c.WebhookSecret() != nil,
		IsPrincipal:    c.IsPrincipal(),
		Verified:       c.IsVerified(),
		Active:         c.IsActive(),
		ErrorCount:     c.ErrorCount(),
		LastError:      c.LastError(),
		LastVerifiedAt: c.LastVerifiedAt(),
		CreatedAt:      c.CreatedAt().Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt().Format(time.RFC3339),
	}
}

func ToConnectorDTOs(connectors []*connector.Connector) []*ConnectorDTO {
	dtos := make([]*ConnectorDTO, len(connectors))
	for i, c := range connectors {
		dtos[i] = ToConnectorDTO(c)
	}
	return dtos
}
