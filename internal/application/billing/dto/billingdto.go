// Package dto provides data transfer objects for subscriptions and payments.
package dto

import (
	"time"

	"github.com/orris-inc/paybridge/internal/domain/payment"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
)

type SubscriptionDTO struct {
	ID             string     `json:"id"` // Prefixed ID (e.g., "sub_xK9mP2vL3nQ")
	TenantID       string     `json:"tenant_id"`
	PlanRef        string     `json:"plan_ref,omitempty"`
	Gateway        string     `json:"gateway"`
	ExternalID     string     `json:"external_id"`
	CustomerRef    string     `json:"customer_ref,omitempty"`
	Status         string     `json:"status"`
	Price          int64      `json:"price"`
	Currency       string     `json:"currency"`
	DiscountAmount int64      `json:"discount_amount"`
	DiscountKind   string     `json:"discount_kind"`
	DiscountMonths int        `json:"discount_months"`
	MonthsElapsed  int        `json:"months_elapsed"`
	BillingPeriod  string     `json:"billing_period"`
	NextChargeAt   *time.Time `json:"next_charge_at,omitempty"`
	AmountDue      int64      `json:"amount_due"`
	FailedAttempts int        `json:"failed_attempts"`
	RetryCycles    int        `json:"retry_cycles"`
	TotalPaid      int64      `json:"total_paid"`
	AutoCharge     bool       `json:"auto_charge"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`

	History  []*HistoryDTO `json:"history,omitempty"`
	Payments []*PaymentDTO `json:"payments,omitempty"`
}

type HistoryDTO struct {
	EventType  string                 `json:"event_type"`
	FromStatus string                 `json:"from_status"`
	ToStatus   string                 `json:"to_status"`
	Reason     string                 `json:"reason,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

type PaymentDTO struct {
	ID            string     `json:"id"` // Prefixed ID (e.g., "pay_xK9mP2vL3nQ")
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Gateway       string     `json:"gateway"`
	ExternalID    *string    `json:"external_id,omitempty"`
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     string     `json:"created_at"`
}

func ToSubscriptionDTO(s *subscription.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	d := s.Discount()
	return &SubscriptionDTO{
		ID:             s.SID(),
		TenantID:       s.TenantID(),
		PlanRef:        s.PlanRef(),
		Gateway:        s.Gateway().String(),
		ExternalID:     s.ExternalID(),
		CustomerRef:    s.CustomerRef(),
		Status:         s.Status().String(),
		Price:          s.Price(),
		Currency:       s.Currency(),
		DiscountAmount: d.Amount(),
		DiscountKind:   string(d.Kind()),
		DiscountMonths: d.Months(),
		MonthsElapsed:  s.MonthsElapsed(),
		BillingPeriod:  string(s.BillingPeriod()),
		NextChargeAt:   s.NextChargeAt(),
		AmountDue:      s.AmountDue(s.IsFirstCharge()),
		FailedAttempts: s.FailedAttempts(),
		RetryCycles:    s.RetryCycles(),
		TotalPaid:      s.TotalPaid(),
		AutoCharge:     s.AutoCharge(),
		CreatedAt:      s.CreatedAt().Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt().Format(time.RFC3339),
	}
}

func ToSubscriptionDTOs(subs []*subscription.Subscription) []*SubscriptionDTO {
	out := make([]*SubscriptionDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, ToSubscriptionDTO(s))
	}
	return out
}

func ToHistoryDTOs(records []*subscription.SubscriptionHistory) []*HistoryDTO {
	out := make([]*HistoryDTO, 0, len(records))
	for _, h := range records {
		out = append(out, &HistoryDTO{
			EventType:  h.EventType().String(),
			FromStatus: h.FromStatus().String(),
			ToStatus:   h.ToStatus().String(),
			Reason:     h.Reason(),
			Metadata:   h.Metadata(),
			CreatedAt:  h.CreatedAt().Format(time.RFC3339),
		})
	}
	return out
}

func ToPaymentDTO(p *payment.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:            p.SID(),
		Amount:        p.Amount().Amount(),
		Currency:      p.Amount().Currency(),
		Status:        p.Status().String(),
		Gateway:       p.Gateway().String(),
		ExternalID:    p.ExternalID(),
		PeriodStart:   p.PeriodStart(),
		PeriodEnd:     p.PeriodEnd(),
		FailureReason: p.FailureReason(),
		CreatedAt:     p.CreatedAt().Format(time.RFC3339),
	}
}

func ToPaymentDTOs(payments []*payment.Payment) []*PaymentDTO {
	out := make([]*PaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToPaymentDTO(p))
	}
	return out
}
