// Package services holds billing services shared by several use cases.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// IdempotencyGuard owns the dedup record of inbound notifications. The
// (gateway, request ID) uniqueness of that record is the only dedup authority.
type IdempotencyGuard struct {
	repo   webhook.ProcessedEventRepository
	logger logger.Interface
}

func NewIdempotencyGuard(repo webhook.ProcessedEventRepository, logger logger.Interface) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo, logger: logger}
}

// Exists reports whether the delivery was already accepted for processing.
func (g *IdempotencyGuard) Exists(ctx context.Context, gw shared.Gateway, requestID string) (bool, error) {
	return g.repo.IsAccepted(ctx, gw, requestID)
}

// Record inserts the pending record if absent. It returns false when another
// delivery of the same notification got there first.
func (g *IdempotencyGuard) Record(ctx context.Context, gw shared.Gateway, requestID, eventType, dataID, sourceIP, tenantID string) (bool, error) {
	ev, err := webhook.NewAcceptedEvent(gw, requestID, eventType, dataID, sourceIP)
	if err != nil {
		return false, err
	}
	ev.SetTenant(tenantID)
	return g.repo.Claim(ctx, ev)
}

// Reject stores an error record for a delivery refused before the ack. A
// failure to store it is logged and swallowed so the HTTP answer is unaffected.
func (g *IdempotencyGuard) Reject(ctx context.Context, gw shared.Gateway, requestID, eventType, dataID, sourceIP, tenantID, message string) {
	ev, err := webhook.NewRejectedEvent(gw, requestID, eventType, dataID, sourceIP, message)
	if err != nil {
		g.logger.Warnw("cannot record rejected webhook", "gateway", gw, "error", err)
		return
	}
	ev.SetTenant(tenantID)
	if err := g.repo.RecordRejection(ctx, ev); err != nil {
		g.logger.Errorw("failed to record rejected webhook",
			"gateway", gw,
			"request_id", requestID,
			"error", err,
		)
	}
}

// Finalize writes the final outcome of an accepted record once.
func (g *IdempotencyGuard) Finalize(ctx context.Context, gw shared.Gateway, requestID string, outcome webhook.Outcome, message, tenantID string) error {
	ev, err := g.repo.Get(ctx, gw, requestID)
	if err != nil {
		return fmt.Errorf("failed to load processed event: %w", err)
	}
	if err := ev.Finalize(outcome, message, tenantID); err != nil {
		return err
	}
	if err := g.repo.Finalize(ctx, ev); err != nil {
		if errors.Is(err, webhook.ErrAlreadyFinalized) {
			return err
		}
		return fmt.Errorf("failed to finalize processed event: %w", err)
	}
	return nil
}
