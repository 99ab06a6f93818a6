package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeSuccess, OutcomeSkipped, OutcomeError:
		return true
	}
	return false
}

func (o Outcome) IsFinal() bool {
	return o != OutcomePending
}

const MessageAbandoned = "abandoned"

var (
	ErrAlreadyFinalized = errors.New("processed event is already finalized")
	ErrEventNotFound    = errors.New("processed event not found")
)

// ProcessedEvent is the deduplication record of one inbound notification.
// Its identity (gateway, request ID) is written once and never reused.
// Rejected records (misconfiguration, bad signature) stay claimable so a
// later authentic delivery with the same request ID is still processed.
type ProcessedEvent struct {
	id         uint
	gateway    shared.Gateway
	requestID  string
	eventType  string
	dataID     string
	tenantID   *string
	outcome    Outcome
	message    string
	sourceIP   string
	accepted   bool
	receivedAt time.Time
}

// NewAcceptedEvent creates the pending record written just before the ack.
func NewAcceptedEvent(gateway shared.Gateway, requestID, eventType, dataID, sourceIP string) (*ProcessedEvent, error) {
	return newProcessedEvent(gateway, requestID, eventType, dataID, sourceIP, OutcomePending, "", true)
}

// NewRejectedEvent creates an error record for a delivery refused before the ack.
func NewRejectedEvent(gateway shared.Gateway, requestID, eventType, dataID, sourceIP, message string) (*ProcessedEvent, error) {
	return newProcessedEvent(gateway, requestID, eventType, dataID, sourceIP, OutcomeError, message, false)
}

func newProcessedEvent(gateway shared.Gateway, requestID, eventType, dataID, sourceIP string, outcome Outcome, message string, accepted bool) (*ProcessedEvent, error) {
	if !gateway.IsValid() {
		return nil, fmt.Errorf("invalid gateway: %s", gateway)
	}
	if requestID == "" {
		return nil, fmt.Errorf("request ID is required")
	}
	return &ProcessedEvent{
		gateway:    gateway,
		requestID:  requestID,
		eventType:  eventType,
		dataID:     dataID,
		outcome:    outcome,
		message:    message,
		sourceIP:   sourceIP,
		accepted:   accepted,
		receivedAt: biztime.NowUTC(),
	}, nil
}

func ReconstructProcessedEvent(
	id uint,
	gateway shared.Gateway,
	requestID, eventType, dataID string,
	tenantID *string,
	outcome Outcome,
	message, sourceIP string,
	accepted bool,
	receivedAt time.Time,
) (*ProcessedEvent, error) {
	if id == 0 {
		return nil, fmt.Errorf("processed event ID cannot be zero")
	}
	if !outcome.IsValid() {
		return nil, fmt.Errorf("invalid outcome: %s", outcome)
	}
	return &ProcessedEvent{
		id:         id,
		gateway:    gateway,
		requestID:  requestID,
		eventType:  eventType,
		dataID:     dataID,
		tenantID:   tenantID,
		outcome:    outcome,
		message:    message,
		sourceIP:   sourceIP,
		accepted:   accepted,
		receivedAt: receivedAt,
	}, nil
}

// Finalize moves a pending record to its final outcome exactly once.
func (e *ProcessedEvent) Finalize(outcome Outcome, message string, tenantID string) error {
	if !e.accepted || e.outcome.IsFinal() {
		return ErrAlreadyFinalized
	}
	if !outcome.IsValid() || !outcome.IsFinal() {
		return fmt.Errorf("invalid final outcome: %s", outcome)
	}
	e.outcome = outcome
	e.message = message
	if tenantID != "" {
		e.tenantID = &tenantID
	}
	return nil
}

// SetTenant records the routed tenant.
func (e *ProcessedEvent) SetTenant(tenantID string) {
	if tenantID != "" {
		e.tenantID = &tenantID
	}
}

func (e *ProcessedEvent) SetID(id uint) {
	e.id = id
}

func (e *ProcessedEvent) ID() uint                { return e.id }
func (e *ProcessedEvent) Gateway() shared.Gateway { return e.gateway }
func (e *ProcessedEvent) RequestID() string       { return e.requestID }
func (e *ProcessedEvent) EventType() string       { return e.eventType }
func (e *ProcessedEvent) DataID() string          { return e.dataID }
func (e *ProcessedEvent) TenantID() *string       { return e.tenantID }
func (e *ProcessedEvent) Outcome() Outcome        { return e.outcome }
func (e *ProcessedEvent) Message() string         { return e.message }
func (e *ProcessedEvent) SourceIP() string        { return e.sourceIP }
func (e *ProcessedEvent) IsAccepted() bool        { return e.accepted }
func (e *ProcessedEvent) ReceivedAt() time.Time   { return e.receivedAt }
