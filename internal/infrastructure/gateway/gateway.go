// Package gateway defines the narrow capability the billing engine needs from
// an external payment gateway, plus the vocabulary gateways are mapped into.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

// PaymentOutcome is the gateway-agnostic result of a payment.
type PaymentOutcome string

const (
	PaymentApproved PaymentOutcome = "approved"
	PaymentRejected PaymentOutcome = "rejected"
	PaymentPending  PaymentOutcome = "pending"
)

// SubscriptionOutcome is the gateway-agnostic state of a gateway subscription.
type SubscriptionOutcome string

const (
	SubscriptionAuthorized SubscriptionOutcome = "authorized"
	SubscriptionCancelled  SubscriptionOutcome = "cancelled"
	SubscriptionPaused     SubscriptionOutcome = "paused"
	SubscriptionPending    SubscriptionOutcome = "pending"
)

// PaymentEvent is the authoritative detail of one payment.
type PaymentEvent struct {
	ExternalID        string
	Outcome           PaymentOutcome
	RawStatus         string
	StatusDetail      string
	Amount            int64
	Currency          string
	ExternalReference string
	SubscriptionRef   string
	OccurredAt        time.Time
}

// SubscriptionEvent is the authoritative detail of one gateway subscription.
type SubscriptionEvent struct {
	ExternalID  string
	Outcome     SubscriptionOutcome
	RawStatus   string
	CustomerRef string
	Reference   string
	Amount      int64
	Currency    string
	OccurredAt  time.Time
}

type ChargeRequest struct {
	// IdempotencyKey is mandatory and forwarded to the gateway.
	IdempotencyKey    string
	Amount            int64
	Currency          string
	CustomerRef       string
	SubscriptionRef   string
	ExternalReference string
	Description       string
}

func (r ChargeRequest) Validate() error {
	if r.IdempotencyKey == "" {
		return fmt.Errorf("idempotency key is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("charge amount must be positive")
	}
	if r.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}

type ChargeResult struct {
	ExternalID   string
	Outcome      PaymentOutcome
	RawStatus    string
	StatusDetail string
}

// Client is implemented once per gateway.
type Client interface {
	Gateway() shared.Gateway
	FetchPaymentEvent(ctx context.Context, id string) (*PaymentEvent, error)
	FetchSubscriptionEvent(ctx context.Context, id string) (*SubscriptionEvent, error)
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CancelSubscription(ctx context.Context, id string) error
	PauseSubscription(ctx context.Context, id string) error
	// Ping performs a cheap authenticated call to prove the credentials work.
	Ping(ctx context.Context) error
}
