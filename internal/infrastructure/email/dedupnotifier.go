package email

import (
	"context"
	"time"

	"github.com/orris-inc/paybridge/internal/infrastructure/cache"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type alertGate interface {
	TryAcquireAlertLock(ctx context.Context, alertType cache.AlertType, resourceID string, ttl time.Duration) (bool, error)
}

// DedupNotifier drops repeats of the same alert inside the cooldown. If the
// gate is unreachable the alert is sent.
type DedupNotifier struct {
	next     Notifier
	gate     alertGate
	cooldown time.Duration
	logger   logger.Interface
}

func NewDedupNotifier(next Notifier, gate alertGate, cooldown time.Duration, log logger.Interface) *DedupNotifier {
	return &DedupNotifier{next: next, gate: gate, cooldown: cooldown, logger: log}
}

func (n *DedupNotifier) NotifyRetryCyclesExhausted(ctx context.Context, tenantID, subscriptionSID, externalID string, cycles int) error {
	if !n.allow(ctx, cache.AlertTypeRetryCyclesExhausted, tenantID+":"+subscriptionSID) {
		return nil
	}
	return n.next.NotifyRetryCyclesExhausted(ctx, tenantID, subscriptionSID, externalID, cycles)
}

func (n *DedupNotifier) NotifyConnectorVerificationFailed(ctx context.Context, tenantID, connectorSID, gateway, reason string) error {
	if !n.allow(ctx, cache.AlertTypeConnectorVerificationFailed, tenantID+":"+connectorSID) {
		return nil
	}
	return n.next.NotifyConnectorVerificationFailed(ctx, tenantID, connectorSID, gateway, reason)
}

func (n *DedupNotifier) allow(ctx context.Context, alertType cache.AlertType, resourceID string) bool {
	if n.cooldown <= 0 {
		return true
	}
	ok, err := n.gate.TryAcquireAlertLock(ctx, alertType, resourceID, n.cooldown)
	if err != nil {
		n.logger.Warnw("alert deduplication unavailable", "alert_type", alertType, "error", err)
		return true
	}
	if !ok {
		n.logger.Debugw("alert suppressed during cooldown", "alert_type", alertType, "resource_id", resourceID)
	}
	return ok
}
