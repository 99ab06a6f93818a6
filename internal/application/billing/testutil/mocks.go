// Package testutil provides in-memory implementations for testing the billing application layer.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	connectorapp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/payment"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
)

// MockSubscriptionRepository stores subscriptions in memory and enforces the
// same optimistic version check as the gorm repository.
type MockSubscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions map[uint]*subscription.Subscription
	versions      map[uint]int
	nextID        uint

	// ConflictsToInject makes the next N updates fail with a conflict.
	ConflictsToInject int
	UpdateCalls       int

	// BeforeGet, when set, runs at the start of every GetByID outside the lock.
	BeforeGet func(id uint)
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		subscriptions: make(map[uint]*subscription.Subscription),
		versions:      make(map[uint]int),
	}
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.subscriptions {
		if existing.TenantID() == s.TenantID() && existing.Gateway() == s.Gateway() && existing.ExternalID() == s.ExternalID() && s.ExternalID() != "" {
			return apperrors.NewConflictError("subscription already registered for this gateway id")
		}
	}
	m.nextID++
	if err := s.SetID(m.nextID); err != nil {
		return err
	}
	m.subscriptions[s.ID()] = s
	m.versions[s.ID()] = s.Version()
	return nil
}

// GetByID returns a detached copy so concurrent writers see conflicts.
func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	if m.BeforeGet != nil {
		m.BeforeGet(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subscriptions[id]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return clone(s), nil
}

func (m *MockSubscriptionRepository) GetBySID(ctx context.Context, tenantID, sid string) (*subscription.Subscription, error) {
	return m.find(func(s *subscription.Subscription) bool {
		return s.TenantID() == tenantID && s.SID() == sid
	})
}

func (m *MockSubscriptionRepository) GetByExternalID(ctx context.Context, tenantID string, gw shared.Gateway, externalID string) (*subscription.Subscription, error) {
	return m.find(func(s *subscription.Subscription) bool {
		return s.TenantID() == tenantID && s.Gateway() == gw && s.ExternalID() == externalID
	})
}

func (m *MockSubscriptionRepository) FindByExternalIDAnyTenant(ctx context.Context, gw shared.Gateway, externalID string) (*subscription.Subscription, error) {
	return m.find(func(s *subscription.Subscription) bool {
		return s.Gateway() == gw && s.ExternalID() == externalID
	})
}

func (m *MockSubscriptionRepository) find(match func(*subscription.Subscription) bool) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if s := m.subscriptions[id]; match(s) {
			return clone(s), nil
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	if m.ConflictsToInject > 0 {
		m.ConflictsToInject--
		return apperrors.NewConflictError("subscription was modified concurrently")
	}
	stored, ok := m.versions[s.ID()]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	if stored != s.Version()-1 {
		return apperrors.NewConflictError("subscription was modified concurrently")
	}
	m.subscriptions[s.ID()] = clone(s)
	m.versions[s.ID()] = s.Version()
	return nil
}

func (m *MockSubscriptionRepository) List(ctx context.Context, filter subscription.SubscriptionFilter) ([]*subscription.Subscription, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*subscription.Subscription
	for _, s := range m.subscriptions {
		if filter.TenantID != "" && s.TenantID() != filter.TenantID {
			continue
		}
		if filter.Gateway != nil && s.Gateway() != *filter.Gateway {
			continue
		}
		if filter.Status != nil && s.Status() != *filter.Status {
			continue
		}
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	total := int64(len(out))
	if filter.PageSize > 0 {
		start := min(filter.Offset(), len(out))
		end := min(start+filter.Limit(), len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (m *MockSubscriptionRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*subscription.Subscription
	for _, s := range m.subscriptions {
		if s.IsDue(now) {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextChargeAt().Before(*out[j].NextChargeAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSubscriptionRepository) CountActiveByGateway(ctx context.Context, tenantID string, gw shared.Gateway) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, s := range m.subscriptions {
		if s.TenantID() == tenantID && s.Gateway() == gw && !s.Status().IsTerminal() {
			n++
		}
	}
	return n, nil
}

// Snapshot returns the stored subscription.
func (m *MockSubscriptionRepository) Snapshot(id uint) *subscription.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.subscriptions[id]; ok {
		return clone(s)
	}
	return nil
}

func clone(s *subscription.Subscription) *subscription.Subscription {
	c, err := subscription.ReconstructSubscription(subscription.ReconstructSubscriptionParams{
		ID:             s.ID(),
		SID:            s.SID(),
		TenantID:       s.TenantID(),
		PlanRef:        s.PlanRef(),
		Gateway:        s.Gateway(),
		ExternalID:     s.ExternalID(),
		CustomerRef:    s.CustomerRef(),
		Status:         s.Status(),
		Price:          s.Price(),
		Currency:       s.Currency(),
		Discount:       s.Discount(),
		MonthsElapsed:  s.MonthsElapsed(),
		BillingPeriod:  s.BillingPeriod(),
		NextChargeAt:   copyTime(s.NextChargeAt()),
		FailedAttempts: s.FailedAttempts(),
		RetryCycles:    s.RetryCycles(),
		TotalPaid:      s.TotalPaid(),
		AutoCharge:     s.AutoCharge(),
		Version:        s.Version(),
		CreatedAt:      s.CreatedAt(),
		UpdatedAt:      s.UpdatedAt(),
	})
	if err != nil {
		panic(err)
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// MockHistoryRepository records history entries in memory.
type MockHistoryRepository struct {
	mu      sync.Mutex
	Records []*subscription.SubscriptionHistory
}

func (m *MockHistoryRepository) Create(ctx context.Context, h *subscription.SubscriptionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, h)
	return h.SetID(uint(len(m.Records)))
}

func (m *MockHistoryRepository) ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*subscription.SubscriptionHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*subscription.SubscriptionHistory
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].SubscriptionID() == subscriptionID {
			out = append(out, m.Records[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockHistoryRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}

// MockPaymentRepository stores detached copies of payments in memory and
// applies the same pending-only write rules as the gorm repository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uint]*payment.Payment
	nextID   uint
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[uint]*payment.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.payments {
		if existing.IdempotencyKey() == p.IdempotencyKey() {
			return apperrors.NewConflictError("payment already exists", p.IdempotencyKey())
		}
	}
	m.nextID++
	if err := p.SetID(m.nextID); err != nil {
		return err
	}
	m.payments[p.ID()] = clonePayment(p)
	return nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID()]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	if stored.Status().IsPending() {
		m.payments[p.ID()] = clonePayment(p)
	}
	return nil
}

func (m *MockPaymentRepository) Settle(ctx context.Context, p *payment.Payment) error {
	if !p.Status().IsFinal() {
		return fmt.Errorf("cannot settle payment in status %s", p.Status())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID()]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	if !stored.Status().IsPending() {
		return payment.ErrPaymentAlreadySettled
	}
	m.payments[p.ID()] = clonePayment(p)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.ID() == id })
}

func (m *MockPaymentRepository) GetBySID(ctx context.Context, sid string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.SID() == sid })
}

func (m *MockPaymentRepository) GetByExternalID(ctx context.Context, gw shared.Gateway, externalID string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool {
		return p.Gateway() == gw && p.ExternalID() != nil && *p.ExternalID() == externalID
	})
}

func (m *MockPaymentRepository) find(match func(*payment.Payment) bool) (*payment.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if match(p) {
			return clonePayment(p), nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (m *MockPaymentRepository) ListBySubscription(ctx context.Context, subscriptionID uint, limit int) ([]*payment.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*payment.Payment
	for _, p := range m.payments {
		if p.SubscriptionID() != nil && *p.SubscriptionID() == subscriptionID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored payment ordered by ID.
func (m *MockPaymentRepository) All() []*payment.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*payment.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func clonePayment(p *payment.Payment) *payment.Payment {
	metadata := make(map[string]interface{}, len(p.Metadata()))
	for k, v := range p.Metadata() {
		metadata[k] = v
	}
	c, err := payment.ReconstructPayment(payment.ReconstructPaymentParams{
		ID:             p.ID(),
		SID:            p.SID(),
		SubscriptionID: p.SubscriptionID(),
		TenantID:       p.TenantID(),
		Amount:         p.Amount(),
		Status:         p.Status(),
		Gateway:        p.Gateway(),
		ExternalID:     p.ExternalID(),
		IdempotencyKey: p.IdempotencyKey(),
		PeriodStart:    copyTime(p.PeriodStart()),
		PeriodEnd:      copyTime(p.PeriodEnd()),
		FailureReason:  p.FailureReason(),
		Metadata:       metadata,
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	})
	if err != nil {
		panic(err)
	}
	return c
}

type eventKey struct {
	gateway   shared.Gateway
	requestID string
}

// MockProcessedEventRepository mirrors the claim semantics of the gorm repository.
type MockProcessedEventRepository struct {
	mu     sync.Mutex
	events map[eventKey]*webhook.ProcessedEvent
	nextID uint
}

func NewMockProcessedEventRepository() *MockProcessedEventRepository {
	return &MockProcessedEventRepository{events: make(map[eventKey]*webhook.ProcessedEvent)}
}

func (m *MockProcessedEventRepository) IsAccepted(ctx context.Context, gw shared.Gateway, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventKey{gw, requestID}]
	return ok && ev.IsAccepted(), nil
}

func (m *MockProcessedEventRepository) Claim(ctx context.Context, event *webhook.ProcessedEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := eventKey{event.Gateway(), event.RequestID()}
	if existing, ok := m.events[key]; ok {
		if existing.IsAccepted() {
			return false, nil
		}
		event.SetID(existing.ID())
		m.events[key] = event
		return true, nil
	}
	m.nextID++
	event.SetID(m.nextID)
	m.events[key] = event
	return true, nil
}

func (m *MockProcessedEventRepository) RecordRejection(ctx context.Context, event *webhook.ProcessedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := eventKey{event.Gateway(), event.RequestID()}
	if existing, ok := m.events[key]; ok {
		if existing.IsAccepted() {
			return nil
		}
		event.SetID(existing.ID())
	} else {
		m.nextID++
		event.SetID(m.nextID)
	}
	m.events[key] = event
	return nil
}

func (m *MockProcessedEventRepository) Get(ctx context.Context, gw shared.Gateway, requestID string) (*webhook.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventKey{gw, requestID}]
	if !ok {
		return nil, webhook.ErrEventNotFound
	}
	return reconstructEvent(ev), nil
}

func (m *MockProcessedEventRepository) Finalize(ctx context.Context, event *webhook.ProcessedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := eventKey{event.Gateway(), event.RequestID()}
	stored, ok := m.events[key]
	if !ok || !stored.IsAccepted() || stored.Outcome().IsFinal() {
		return webhook.ErrAlreadyFinalized
	}
	m.events[key] = reconstructEvent(event)
	return nil
}

func (m *MockProcessedEventRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*webhook.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*webhook.ProcessedEvent
	for _, ev := range m.events {
		if ev.IsAccepted() && ev.Outcome() == webhook.OutcomePending && ev.ReceivedAt().Before(before) {
			out = append(out, reconstructEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt().Before(out[j].ReceivedAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Lookup returns the stored record or nil.
func (m *MockProcessedEventRepository) Lookup(gw shared.Gateway, requestID string) *webhook.ProcessedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[eventKey{gw, requestID}]; ok {
		return reconstructEvent(ev)
	}
	return nil
}

// Len returns the number of stored records.
func (m *MockProcessedEventRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Backdate stores a pending accepted record received at the given time.
func (m *MockProcessedEventRepository) Backdate(gw shared.Gateway, requestID string, receivedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev, _ := webhook.ReconstructProcessedEvent(m.nextID, gw, requestID, "payment", "1", nil,
		webhook.OutcomePending, "", "127.0.0.1", true, receivedAt)
	m.events[eventKey{gw, requestID}] = ev
}

func reconstructEvent(ev *webhook.ProcessedEvent) *webhook.ProcessedEvent {
	id := ev.ID()
	if id == 0 {
		id = 1
	}
	c, err := webhook.ReconstructProcessedEvent(id, ev.Gateway(), ev.RequestID(), ev.EventType(), ev.DataID(),
		ev.TenantID(), ev.Outcome(), ev.Message(), ev.SourceIP(), ev.IsAccepted(), ev.ReceivedAt())
	if err != nil {
		panic(err)
	}
	return c
}

// StaticResolver resolves every tenant to the same credentials unless Err is set.
type StaticResolver struct {
	mu    sync.Mutex
	Creds map[string]*connectorapp.ResolvedCredentials
	Err   error
	Calls int
}

// NewStaticResolver resolves tenantID to a connector with secret as webhook secret.
func NewStaticResolver(tenantID string, gw shared.Gateway, secret string) *StaticResolver {
	return &StaticResolver{Creds: map[string]*connectorapp.ResolvedCredentials{
		tenantID: {
			ConnectorID:   "conn_test",
			TenantID:      tenantID,
			Gateway:       gw,
			Environment:   shared.EnvironmentProduction,
			Credentials:   map[string]string{"access_token": "APP_USR-test"},
			WebhookSecret: secret,
		},
	}}
}

func (r *StaticResolver) ResolvePrincipal(ctx context.Context, tenantID string, gw shared.Gateway, env shared.Environment) (*connectorapp.ResolvedCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	creds, ok := r.Creds[tenantID]
	if !ok || creds.Gateway != gw {
		return nil, connectorapp.ErrNotConfigured
	}
	return creds, nil
}
