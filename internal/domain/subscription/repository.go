package subscription

import (
	"context"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/query"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, tenantID, sid string) (*Subscription, error)
	GetByExternalID(ctx context.Context, tenantID string, gateway shared.Gateway, externalID string) (*Subscription, error)
	// Update persists with optimistic locking; a stale version yields a conflict error.
	Update(ctx context.Context, subscription *Subscription) error
	List(ctx context.Context, filter SubscriptionFilter) ([]*Subscription, int64, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
	CountActiveByGateway(ctx context.Context, tenantID string, gateway shared.Gateway) (int64, error)
}

// SystemSubscriptionLookup finds a subscription by its gateway id across all
// tenants. It exists for inbound events whose payload does not name a tenant.
type SystemSubscriptionLookup interface {
	FindByExternalIDAnyTenant(ctx context.Context, gateway shared.Gateway, externalID string) (*Subscription, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, history *SubscriptionHistory) error
	ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*SubscriptionHistory, error)
}

// SubscriptionFilter sorts on created_at, updated_at or next_charge_at.
type SubscriptionFilter struct {
	query.BaseFilter
	TenantID string
	Gateway  *shared.Gateway
	Status   *vo.SubscriptionStatus
}
