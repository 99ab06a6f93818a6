package subscription

import (
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/id"
)

// Subscription represents the billing subscription aggregate root.
// Status and counters change only through StateMachine.Apply.
type Subscription struct {
	id             uint
	sid            string
	tenantID       string
	planRef        string
	gateway        shared.Gateway
	externalID     string
	customerRef    string
	status         vo.SubscriptionStatus
	price          int64
	currency       string
	discount       vo.Discount
	monthsElapsed  int
	billingPeriod  vo.BillingPeriod
	nextChargeAt   *time.Time
	failedAttempts int
	retryCycles    int
	totalPaid      int64
	autoCharge     bool
	version        int
	createdAt      time.Time
	updatedAt      time.Time
}

// NewSubscriptionParams groups the values needed to register a subscription.
type NewSubscriptionParams struct {
	TenantID      string
	PlanRef       string
	Gateway       shared.Gateway
	ExternalID    string
	CustomerRef   string
	Price         int64
	Currency      string
	Discount      vo.Discount
	BillingPeriod vo.BillingPeriod
	NextChargeAt  *time.Time
	AutoCharge    bool
}

// NewSubscription creates a subscription in pending status
func NewSubscription(p NewSubscriptionParams) (*Subscription, error) {
	if p.TenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if !p.Gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", p.Gateway)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	if p.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	if p.BillingPeriod == "" {
		p.BillingPeriod = vo.BillingPeriodMonthly
	}
	if !p.BillingPeriod.IsValid() {
		return nil, fmt.Errorf("invalid billing period: %s", p.BillingPeriod)
	}
	if p.Discount.Kind() == "" {
		p.Discount = vo.NoDiscount()
	}

	sid, err := id.NewSubscriptionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Subscription{
		sid:           sid,
		tenantID:      p.TenantID,
		planRef:       p.PlanRef,
		gateway:       p.Gateway,
		externalID:    p.ExternalID,
		customerRef:   p.CustomerRef,
		status:        vo.StatusPending,
		price:         p.Price,
		currency:      p.Currency,
		discount:      p.Discount,
		billingPeriod: p.BillingPeriod,
		nextChargeAt:  p.NextChargeAt,
		autoCharge:    p.AutoCharge,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructSubscriptionParams carries persisted column values.
type ReconstructSubscriptionParams struct {
	ID             uint
	SID            string
	TenantID       string
	PlanRef        string
	Gateway        shared.Gateway
	ExternalID     string
	CustomerRef    string
	Status         vo.SubscriptionStatus
	Price          int64
	Currency       string
	Discount       vo.Discount
	MonthsElapsed  int
	BillingPeriod  vo.BillingPeriod
	NextChargeAt   *time.Time
	FailedAttempts int
	RetryCycles    int
	TotalPaid      int64
	AutoCharge     bool
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconstructSubscription reconstructs a subscription from persistence
func ReconstructSubscription(p ReconstructSubscriptionParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.TenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if !vo.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	if !p.BillingPeriod.IsValid() {
		return nil, fmt.Errorf("invalid billing period: %s", p.BillingPeriod)
	}

	return &Subscription{
		id:             p.ID,
		sid:            p.SID,
		tenantID:       p.TenantID,
		planRef:        p.PlanRef,
		gateway:        p.Gateway,
		externalID:     p.ExternalID,
		customerRef:    p.CustomerRef,
		status:         p.Status,
		price:          p.Price,
		currency:       p.Currency,
		discount:       p.Discount,
		monthsElapsed:  p.MonthsElapsed,
		billingPeriod:  p.BillingPeriod,
		nextChargeAt:   p.NextChargeAt,
		failedAttempts: p.FailedAttempts,
		retryCycles:    p.RetryCycles,
		totalPaid:      p.TotalPaid,
		autoCharge:     p.AutoCharge,
		version:        p.Version,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}, nil
}

// ID returns the subscription ID
func (s *Subscription) ID() uint {
	return s.id
}

// SID returns the public subscription identifier
func (s *Subscription) SID() string {
	return s.sid
}

// TenantID returns the owning tenant
func (s *Subscription) TenantID() string {
	return s.tenantID
}

func (s *Subscription) PlanRef() string {
	return s.planRef
}

func (s *Subscription) Gateway() shared.Gateway {
	return s.gateway
}

// ExternalID returns the gateway-side subscription identifier
func (s *Subscription) ExternalID() string {
	return s.externalID
}

// CustomerRef returns the gateway customer or payer used for charges
func (s *Subscription) CustomerRef() string {
	return s.customerRef
}

// Status returns the subscription status
func (s *Subscription) Status() vo.SubscriptionStatus {
	return s.status
}

func (s *Subscription) Price() int64 {
	return s.price
}

func (s *Subscription) Currency() string {
	return s.currency
}

func (s *Subscription) Discount() vo.Discount {
	return s.discount
}

func (s *Subscription) MonthsElapsed() int {
	return s.monthsElapsed
}

func (s *Subscription) BillingPeriod() vo.BillingPeriod {
	return s.billingPeriod
}

// NextChargeAt returns when the next scheduled charge is due, nil if unscheduled
func (s *Subscription) NextChargeAt() *time.Time {
	return s.nextChargeAt
}

func (s *Subscription) FailedAttempts() int {
	return s.failedAttempts
}

func (s *Subscription) RetryCycles() int {
	return s.retryCycles
}

func (s *Subscription) TotalPaid() int64 {
	return s.totalPaid
}

func (s *Subscription) AutoCharge() bool {
	return s.autoCharge
}

// Version returns the optimistic-lock version
func (s *Subscription) Version() int {
	return s.version
}

func (s *Subscription) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Subscription) UpdatedAt() time.Time {
	return s.updatedAt
}

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

// AmountDue returns the amount of the next charge in minor units.
func (s *Subscription) AmountDue(isFirstCharge bool) int64 {
	return s.discount.Apply(s.price, s.monthsElapsed, isFirstCharge)
}

// IsFirstCharge reports whether no charge has succeeded yet.
func (s *Subscription) IsFirstCharge() bool {
	return s.monthsElapsed == 0 && s.totalPaid == 0
}

// IsDue reports whether a scheduled charge should run at now.
func (s *Subscription) IsDue(now time.Time) bool {
	return s.autoCharge && s.status.IsChargeable() && s.nextChargeAt != nil && !s.nextChargeAt.After(now)
}

// StartRetryCycle records one more reattempt cycle.
func (s *Subscription) StartRetryCycle() {
	s.retryCycles++
	s.touch()
}

func (s *Subscription) setStatus(status vo.SubscriptionStatus) {
	s.status = status
}

func (s *Subscription) touch() {
	s.version++
	s.updatedAt = biztime.NowUTC()
}
