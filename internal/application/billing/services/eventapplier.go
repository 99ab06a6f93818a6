package services

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// MaxConflictRetries bounds reload-and-reapply rounds on version conflicts.
const MaxConflictRetries = 3

// TransactionRunner runs fn inside one database transaction.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventApplier runs the state machine against the stored subscription and
// persists the aggregate together with its history record.
type EventApplier struct {
	subscriptions subscription.SubscriptionRepository
	history       subscription.HistoryRepository
	machine       *subscription.StateMachine
	tx            TransactionRunner
	logger        logger.Interface
}

func NewEventApplier(
	subscriptions subscription.SubscriptionRepository,
	history subscription.HistoryRepository,
	machine *subscription.StateMachine,
	tx TransactionRunner,
	logger logger.Interface,
) *EventApplier {
	return &EventApplier{
		subscriptions: subscriptions,
		history:       history,
		machine:       machine,
		tx:            tx,
		logger:        logger,
	}
}

// WithinFunc writes alongside a subscription transition, inside the same
// transaction. sub and outcome are the state after the machine ran; when the
// event was rejected WithinFunc still runs, in a transaction of its own.
type WithinFunc func(ctx context.Context, sub *subscription.Subscription, outcome subscription.Outcome) error

// Apply loads the subscription, applies ev and saves it. A version conflict
// reloads and re-applies, up to MaxConflictRetries times. A rejected event is
// returned as an Outcome with Applied=false and no error.
func (a *EventApplier) Apply(ctx context.Context, subscriptionID uint, ev subscription.Event) (*subscription.Subscription, subscription.Outcome, error) {
	return a.ApplyWithin(ctx, subscriptionID, ev, nil)
}

// ApplyWithin is Apply with an extra write committed atomically with the
// transition and its history record. An error from within rolls everything
// back and is returned unwrapped.
func (a *EventApplier) ApplyWithin(ctx context.Context, subscriptionID uint, ev subscription.Event, within WithinFunc) (*subscription.Subscription, subscription.Outcome, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		sub, err := a.subscriptions.GetByID(ctx, subscriptionID)
		if err != nil {
			return nil, subscription.Outcome{}, err
		}

		outcome := a.machine.Apply(sub, ev)
		if !outcome.Applied {
			a.logger.Infow("subscription event not applied",
				"subscription_id", subscriptionID,
				"event", ev.Kind,
				"status", outcome.From,
				"reason", outcome.Reason,
			)
			if within != nil {
				if err := a.tx.RunInTransaction(ctx, func(ctx context.Context) error {
					return within(ctx, sub, outcome)
				}); err != nil {
					return nil, subscription.Outcome{}, err
				}
			}
			return sub, outcome, nil
		}

		var withinErr error
		err = a.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if within != nil {
				if withinErr = within(ctx, sub, outcome); withinErr != nil {
					return withinErr
				}
			}
			if err := a.subscriptions.Update(ctx, sub); err != nil {
				return err
			}
			return a.history.Create(ctx, outcome.History)
		})
		if withinErr != nil {
			return nil, subscription.Outcome{}, withinErr
		}
		if err == nil {
			a.logger.Infow("subscription event applied",
				"subscription_id", subscriptionID,
				"subscription_sid", sub.SID(),
				"event", ev.Kind,
				"from", outcome.From,
				"to", outcome.To,
			)
			return sub, outcome, nil
		}
		if !errors.IsConflictError(err) {
			return nil, subscription.Outcome{}, fmt.Errorf("failed to save subscription: %w", err)
		}
		lastErr = err
		a.logger.Debugw("subscription version conflict, reloading",
			"subscription_id", subscriptionID,
			"attempt", attempt+1,
		)
	}
	return nil, subscription.Outcome{}, lastErr
}

// StartRetryCycle increments the subscription's retry cycle counter with the
// same conflict handling as Apply.
func (a *EventApplier) StartRetryCycle(ctx context.Context, subscriptionID uint) (*subscription.Subscription, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		sub, err := a.subscriptions.GetByID(ctx, subscriptionID)
		if err != nil {
			return nil, err
		}
		sub.StartRetryCycle()
		err = a.subscriptions.Update(ctx, sub)
		if err == nil {
			return sub, nil
		}
		if !errors.IsConflictError(err) {
			return nil, fmt.Errorf("failed to save subscription: %w", err)
		}
		lastErr = err
	}
	return nil, lastErr
}
