package subscription

import (
	"fmt"

	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

const DefaultFailureThreshold = 2

// Outcome reports what Apply did. A rejected event is not an error: callers
// log Reason and carry on.
type Outcome struct {
	Applied bool
	From    vo.SubscriptionStatus
	To      vo.SubscriptionStatus
	Reason  string
	History *SubscriptionHistory
}

// StateMachine is the only writer of subscription status and billing counters.
type StateMachine struct {
	failureThreshold int
}

func NewStateMachine(failureThreshold int) *StateMachine {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &StateMachine{failureThreshold: failureThreshold}
}

func (m *StateMachine) FailureThreshold() int {
	return m.failureThreshold
}

// Apply applies ev to sub. On success the aggregate is mutated, its version is
// bumped and a history record is attached to the outcome.
func (m *StateMachine) Apply(sub *Subscription, ev Event) Outcome {
	from := sub.status
	if !ev.Kind.IsValid() {
		return rejected(from, fmt.Sprintf("%s: %s", ErrInvalidEventKind, ev.Kind))
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = biztime.NowUTC()
	}

	var reason string
	switch ev.Kind {
	case EventAuthorizationGranted:
		reason = m.authorizationGranted(sub, ev)
	case EventAuthorizationRevoked:
		reason = m.transition(sub, vo.StatusCancelled)
	case EventPaused:
		if from != vo.StatusActive {
			reason = notAllowed(ev.Kind, from)
			break
		}
		reason = m.transition(sub, vo.StatusPaused)
	case EventChargeSucceeded:
		reason = m.chargeSucceeded(sub, ev)
	case EventChargeFailed:
		reason = m.chargeFailed(sub, ev)
	case EventRetryCyclesExhausted:
		if from != vo.StatusSuspended {
			reason = notAllowed(ev.Kind, from)
			break
		}
		reason = m.transition(sub, vo.StatusCancelled)
	}

	if reason != "" {
		return rejected(from, reason)
	}

	sub.touch()
	history := newHistoryFromEvent(sub.id, ev, from, sub.status)
	return Outcome{Applied: true, From: from, To: sub.status, Reason: ev.Reason, History: history}
}

func (m *StateMachine) authorizationGranted(sub *Subscription, ev Event) string {
	switch sub.status {
	case vo.StatusPending, vo.StatusPaused:
	default:
		return notAllowed(ev.Kind, sub.status)
	}
	if sub.nextChargeAt == nil {
		next := ev.OccurredAt
		sub.nextChargeAt = &next
	}
	sub.setStatus(vo.StatusActive)
	return ""
}

func (m *StateMachine) chargeSucceeded(sub *Subscription, ev Event) string {
	if sub.status == vo.StatusCancelled {
		return notAllowed(ev.Kind, sub.status)
	}
	if ev.Amount < 0 {
		return "charge amount cannot be negative"
	}

	base := ev.OccurredAt
	if sub.nextChargeAt != nil && sub.nextChargeAt.After(base) {
		base = *sub.nextChargeAt
	}
	next := biztime.AddMonthsClamped(base, sub.billingPeriod.Months())

	sub.setStatus(vo.StatusActive)
	sub.failedAttempts = 0
	sub.retryCycles = 0
	sub.nextChargeAt = &next
	sub.totalPaid += ev.Amount
	sub.monthsElapsed += sub.billingPeriod.Months()
	return ""
}

func (m *StateMachine) chargeFailed(sub *Subscription, ev Event) string {
	switch sub.status {
	case vo.StatusPending, vo.StatusActive, vo.StatusSuspended:
	default:
		return notAllowed(ev.Kind, sub.status)
	}

	sub.failedAttempts++
	if ev.RetryAt != nil {
		retryAt := *ev.RetryAt
		sub.nextChargeAt = &retryAt
	}
	if sub.status == vo.StatusActive && sub.failedAttempts >= m.failureThreshold {
		sub.setStatus(vo.StatusSuspended)
	}
	return ""
}

func (m *StateMachine) transition(sub *Subscription, to vo.SubscriptionStatus) string {
	if !sub.status.CanTransitionTo(to) {
		return ErrInvalidTransition(sub.status.String(), to.String()).Error()
	}
	sub.setStatus(to)
	return ""
}

func notAllowed(kind EventKind, status vo.SubscriptionStatus) string {
	return fmt.Sprintf("%s not allowed in status %s", kind, status)
}

func rejected(from vo.SubscriptionStatus, reason string) Outcome {
	return Outcome{Applied: false, From: from, To: from, Reason: reason}
}
