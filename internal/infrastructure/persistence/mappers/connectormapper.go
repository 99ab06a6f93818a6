package mappers

import (
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
)

func ConnectorToModel(c *connector.Connector) *models.ConnectorModel {
	creds := c.Credentials()
	model := &models.ConnectorModel{
		ID:                c.ID(),
		SID:               c.SID(),
		TenantID:          c.TenantID(),
		Gateway:           c.Gateway().String(),
		Environment:       c.Environment().String(),
		CredentialsCipher: creds.Ciphertext,
		CredentialsIV:     creds.IV,
		CredentialsTag:    creds.Tag,
		CredentialHint:    c.CredentialHint(),
		IsPrincipal:       c.IsPrincipal(),
		Verified:          c.IsVerified(),
		Active:            c.IsActive(),
		ErrorCount:        c.ErrorCount(),
		LastError:         clampReasonPtr(c.LastError()),
		LastVerifiedAt:    c.LastVerifiedAt(),
		Version:           c.Version(),
		CreatedAt:         c.CreatedAt(),
		UpdatedAt:         c.UpdatedAt(),
	}

	if secret := c.WebhookSecret(); secret != nil {
		model.WebhookSecretCipher = secret.Ciphertext
		model.WebhookSecretIV = secret.IV
		model.WebhookSecretTag = secret.Tag
	}

	return model
}

func ConnectorToDomain(model *models.ConnectorModel) (*connector.Connector, error) {
	var secret *connector.EncryptedBlob
	if len(model.WebhookSecretCipher) > 0 {
		secret = &connector.EncryptedBlob{
			Ciphertext: model.WebhookSecretCipher,
			IV:         model.WebhookSecretIV,
			Tag:        model.WebhookSecretTag,
		}
	}

	return connector.ReconstructConnector(connector.ReconstructConnectorParams{
		ID:          model.ID,
		SID:         model.SID,
		TenantID:    model.TenantID,
		Gateway:     shared.Gateway(model.Gateway),
		Environment: shared.Environment(model.Environment),
		Credentials: connector.EncryptedBlob{
			Ciphertext: model.CredentialsCipher,
			IV:         model.CredentialsIV,
			Tag:        model.CredentialsTag,
		},
		WebhookSecret:  secret,
		CredentialHint: model.CredentialHint,
		IsPrincipal:    model.IsPrincipal,
		Verified:       model.Verified,
		Active:         model.Active,
		ErrorCount:     model.ErrorCount,
		LastError:      model.LastError,
		LastVerifiedAt: model.LastVerifiedAt,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	})
}
