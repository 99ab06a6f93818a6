package subscription

import "time"

// EventKind names a billing event the state machine understands.
type EventKind string

const (
	EventAuthorizationGranted EventKind = "authorization_granted"
	EventAuthorizationRevoked EventKind = "authorization_revoked"
	EventPaused               EventKind = "paused"
	EventChargeSucceeded      EventKind = "charge_succeeded"
	EventChargeFailed         EventKind = "charge_failed"
	EventRetryCyclesExhausted EventKind = "retry_cycles_exhausted"
)

var validEventKinds = map[EventKind]bool{
	EventAuthorizationGranted: true,
	EventAuthorizationRevoked: true,
	EventPaused:               true,
	EventChargeSucceeded:      true,
	EventChargeFailed:         true,
	EventRetryCyclesExhausted: true,
}

func (k EventKind) IsValid() bool {
	return validEventKinds[k]
}

func (k EventKind) String() string {
	return string(k)
}

// Event is one input to the state machine.
type Event struct {
	Kind EventKind
	// Amount is the charged amount for ChargeSucceeded, in minor units.
	Amount int64
	// RetryAt reschedules the next attempt after ChargeFailed when set.
	RetryAt    *time.Time
	Reason     string
	Source     string
	OccurredAt time.Time
	Metadata   map[string]interface{}
}
