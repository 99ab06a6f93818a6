package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/vault"
	"github.com/orris-inc/paybridge/internal/shared/errors"
)

func toBlob(s vault.Sealed) connector.EncryptedBlob {
	return connector.EncryptedBlob{Ciphertext: s.Ciphertext, IV: s.IV, Tag: s.Tag}
}

func validateCredentials(gw shared.Gateway, plain map[string]string) error {
	result := vault.Validate(gw, plain)
	if result.Valid {
		return nil
	}
	if len(result.MissingFields) == 0 {
		return errors.NewValidationError("invalid credentials")
	}
	return errors.NewValidationError("invalid credentials", "missing or malformed: "+strings.Join(result.MissingFields, ", "))
}

// sealSecrets encrypts credentials and, when non-empty, the webhook secret.
func sealSecrets(sealer CredentialSealer, plain map[string]string, webhookSecret string) (connector.EncryptedBlob, *connector.EncryptedBlob, error) {
	sealed, err := sealer.Encrypt(plain)
	if err != nil {
		return connector.EncryptedBlob{}, nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if webhookSecret == "" {
		return toBlob(sealed), nil, nil
	}
	sealedSecret, err := sealer.EncryptString(webhookSecret)
	if err != nil {
		return connector.EncryptedBlob{}, nil, fmt.Errorf("failed to encrypt webhook secret: %w", err)
	}
	secretBlob := toBlob(sealedSecret)
	return toBlob(sealed), &secretBlob, nil
}

func getConnector(ctx context.Context, repo connector.Repository, tenantID, sid string) (*connector.Connector, error) {
	if tenantID == "" || sid == "" {
		return nil, errors.NewValidationError("tenant ID and connector ID are required")
	}
	c, err := repo.GetBySID(ctx, tenantID, sid)
	if err != nil {
		if stderrors.Is(err, connector.ErrConnectorNotFound) {
			return nil, errors.NewNotFoundError("connector not found", sid)
		}
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}
	return c, nil
}
