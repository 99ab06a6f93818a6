package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/metrics"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	DefaultAbandonedAfter = 15 * time.Minute
	sweepBatchSize        = 500
)

// SweepAbandonedEventsUseCase closes dedup records whose detached task never
// finished, typically because the process stopped mid-task.
type SweepAbandonedEventsUseCase struct {
	repo           webhook.ProcessedEventRepository
	guard          *services.IdempotencyGuard
	abandonedAfter time.Duration
	logger         logger.Interface
}

func NewSweepAbandonedEventsUseCase(
	repo webhook.ProcessedEventRepository,
	guard *services.IdempotencyGuard,
	abandonedAfter time.Duration,
	logger logger.Interface,
) *SweepAbandonedEventsUseCase {
	if abandonedAfter <= 0 {
		abandonedAfter = DefaultAbandonedAfter
	}
	return &SweepAbandonedEventsUseCase{
		repo:           repo,
		guard:          guard,
		abandonedAfter: abandonedAfter,
		logger:         logger,
	}
}

func (uc *SweepAbandonedEventsUseCase) Execute(ctx context.Context) (int, error) {
	cutoff := biztime.NowUTC().Add(-uc.abandonedAfter)
	stale, err := uc.repo.ListPendingBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending webhook events: %w", err)
	}

	swept := 0
	for _, ev := range stale {
		tenantID := ""
		if ev.TenantID() != nil {
			tenantID = *ev.TenantID()
		}
		uc.logger.Warnw("abandoned webhook event",
			"gateway", ev.Gateway(),
			"request_id", ev.RequestID(),
			"data_id", ev.DataID(),
			"tenant_id", tenantID,
			"received_at", ev.ReceivedAt(),
		)
		err := uc.guard.Finalize(ctx, ev.Gateway(), ev.RequestID(), webhook.OutcomeError, webhook.MessageAbandoned, tenantID)
		if err != nil {
			if !stderrors.Is(err, webhook.ErrAlreadyFinalized) {
				uc.logger.Errorw("failed to close abandoned webhook event", "request_id", ev.RequestID(), "error", err)
			}
			continue
		}
		metrics.IncWebhookProcessed(ev.Gateway().String(), string(webhook.OutcomeError))
		swept++
	}
	return swept, nil
}
