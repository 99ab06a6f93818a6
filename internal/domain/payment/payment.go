package payment

import (
	"fmt"
	"time"

	vo "github.com/orris-inc/paybridge/internal/domain/payment/valueobjects"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/id"
)

// Payment is one charge attempt, created locally or by an inbound event.
type Payment struct {
	id             uint
	sid            string
	subscriptionID *uint
	tenantID       string
	amount         vo.Money
	status         vo.PaymentStatus
	gateway        shared.Gateway
	externalID     *string
	idempotencyKey string
	periodStart    *time.Time
	periodEnd      *time.Time
	failureReason  *string
	metadata       map[string]interface{}

	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewPendingPayment creates a payment awaiting the gateway's answer.
func NewPendingPayment(tenantID string, subscriptionID *uint, gateway shared.Gateway, amount vo.Money, idempotencyKey string) (*Payment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if !gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", gateway)
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	sid, err := id.NewPaymentID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Payment{
		sid:            sid,
		subscriptionID: subscriptionID,
		tenantID:       tenantID,
		amount:         amount,
		status:         vo.PaymentStatusPending,
		gateway:        gateway,
		idempotencyKey: idempotencyKey,
		metadata:       make(map[string]interface{}),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructPaymentParams carries persisted column values.
type ReconstructPaymentParams struct {
	ID             uint
	SID            string
	SubscriptionID *uint
	TenantID       string
	Amount         vo.Money
	Status         vo.PaymentStatus
	Gateway        shared.Gateway
	ExternalID     *string
	IdempotencyKey string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	FailureReason  *string
	Metadata       map[string]interface{}
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructPayment(p ReconstructPaymentParams) (*Payment, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("payment ID cannot be zero")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", p.Status)
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]interface{})
	}
	return &Payment{
		id:             p.ID,
		sid:            p.SID,
		subscriptionID: p.SubscriptionID,
		tenantID:       p.TenantID,
		amount:         p.Amount,
		status:         p.Status,
		gateway:        p.Gateway,
		externalID:     p.ExternalID,
		idempotencyKey: p.IdempotencyKey,
		periodStart:    p.PeriodStart,
		periodEnd:      p.PeriodEnd,
		failureReason:  p.FailureReason,
		metadata:       p.Metadata,
		version:        p.Version,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}, nil
}

// AttachExternalID records the gateway's id once it is known.
func (p *Payment) AttachExternalID(externalID string) {
	if externalID == "" {
		return
	}
	p.externalID = &externalID
	p.touch()
}

// SetPeriod records the billing period this payment covers.
func (p *Payment) SetPeriod(start, end time.Time) {
	p.periodStart = &start
	p.periodEnd = &end
}

// MarkCompleted is idempotent for already-completed payments.
func (p *Payment) MarkCompleted() error {
	if p.status == vo.PaymentStatusCompleted {
		return nil
	}
	if p.status.IsFinal() {
		return fmt.Errorf("%w: %s", ErrPaymentFinal, p.status)
	}
	p.status = vo.PaymentStatusCompleted
	p.failureReason = nil
	p.touch()
	return nil
}

func (p *Payment) MarkFailed(reason string) error {
	if p.status == vo.PaymentStatusFailed {
		return nil
	}
	if p.status.IsFinal() {
		return fmt.Errorf("%w: %s", ErrPaymentFinal, p.status)
	}
	p.status = vo.PaymentStatusFailed
	p.failureReason = &reason
	p.touch()
	return nil
}

// SetMetadata sets a metadata key-value pair
func (p *Payment) SetMetadata(key string, value interface{}) {
	if p.metadata == nil {
		p.metadata = make(map[string]interface{})
	}
	p.metadata[key] = value
	p.updatedAt = biztime.NowUTC()
}

// SetID sets the payment ID (only for persistence layer use)
func (p *Payment) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("payment ID is already set")
	}
	p.id = id
	return nil
}

func (p *Payment) touch() {
	p.version++
	p.updatedAt = biztime.NowUTC()
}

func (p *Payment) ID() uint {
	return p.id
}

func (p *Payment) SID() string {
	return p.sid
}

func (p *Payment) SubscriptionID() *uint {
	return p.subscriptionID
}

func (p *Payment) TenantID() string {
	return p.tenantID
}

func (p *Payment) Amount() vo.Money {
	return p.amount
}

func (p *Payment) Status() vo.PaymentStatus {
	return p.status
}

func (p *Payment) Gateway() shared.Gateway {
	return p.gateway
}

func (p *Payment) ExternalID() *string {
	return p.externalID
}

func (p *Payment) IdempotencyKey() string {
	return p.idempotencyKey
}

func (p *Payment) PeriodStart() *time.Time {
	return p.periodStart
}

func (p *Payment) PeriodEnd() *time.Time {
	return p.periodEnd
}

func (p *Payment) FailureReason() *string {
	return p.failureReason
}

func (p *Payment) Metadata() map[string]interface{} {
	return p.metadata
}

func (p *Payment) Version() int {
	return p.version
}

func (p *Payment) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Payment) UpdatedAt() time.Time {
	return p.updatedAt
}
