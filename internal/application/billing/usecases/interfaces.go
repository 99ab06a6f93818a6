package usecases

import (
	"context"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
)

// GatewayFactory builds gateway clients and webhook adapters.
type GatewayFactory interface {
	Client(creds gateway.Credentials) (gateway.Client, error)
	WebhookAdapter(g shared.Gateway) (gateway.WebhookAdapter, error)
}

// ChargeLocker serializes charge attempts for one subscription across workers.
type ChargeLocker interface {
	Acquire(ctx context.Context, key string) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}
