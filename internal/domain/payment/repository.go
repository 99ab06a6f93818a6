package payment

import (
	"context"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	// Update writes a payment that is still pending and never touches a
	// settled row.
	Update(ctx context.Context, payment *Payment) error
	// Settle persists a final status only while the stored row is pending,
	// returning ErrPaymentAlreadySettled otherwise.
	Settle(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uint) (*Payment, error)
	GetBySID(ctx context.Context, sid string) (*Payment, error)
	GetByExternalID(ctx context.Context, gateway shared.Gateway, externalID string) (*Payment, error)
	ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*Payment, error)
}
