package connector

import (
	"context"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

type Repository interface {
	Create(ctx context.Context, c *Connector) error
	Update(ctx context.Context, c *Connector) error
	GetBySID(ctx context.Context, tenantID, sid string) (*Connector, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Connector, error)
	// ListActive returns active connectors ordered principal first, then
	// verified, then most recently created.
	ListActive(ctx context.Context, tenantID string, gateway shared.Gateway, env shared.Environment) ([]*Connector, error)
	CountActive(ctx context.Context, tenantID string, gateway shared.Gateway) (int64, error)
	// ClearPrincipal unsets the principal flag on every connector of the
	// tenant and gateway except keepID.
	ClearPrincipal(ctx context.Context, tenantID string, gateway shared.Gateway, keepID uint) error
}
