package usecases

import (
	"context"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/vault"
)

// CredentialSealer encrypts connector material before it is stored.
type CredentialSealer interface {
	Encrypt(plain map[string]string) (vault.Sealed, error)
	EncryptString(plain string) (vault.Sealed, error)
	Decrypt(ciphertext, iv, tag []byte) (map[string]string, error)
}

// CacheInvalidator drops a tenant's cached principal connectors.
type CacheInvalidator interface {
	Invalidate(tenantID string)
}

// ActiveSubscriptionCounter reports how many live subscriptions use a gateway.
type ActiveSubscriptionCounter interface {
	CountActiveByGateway(ctx context.Context, tenantID string, gw shared.Gateway) (int64, error)
}

// TransactionRunner runs fn inside one database transaction.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ClientFactory builds a gateway client from decrypted credentials.
type ClientFactory interface {
	Client(creds gateway.Credentials) (gateway.Client, error)
}
