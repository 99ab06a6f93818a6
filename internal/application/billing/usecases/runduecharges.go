package usecases

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	DefaultChargeConcurrency = 4
	DefaultChargeBatchSize   = 200
)

// RunDueChargesUseCase charges every subscription whose next charge is due.
// Suspended subscriptions go through a retry cycle instead of a plain charge.
type RunDueChargesUseCase struct {
	subscriptions subscription.SubscriptionRepository
	attempt       *AttemptChargeUseCase
	reattempt     *ReattemptChargeUseCase
	concurrency   int
	batchSize     int
	logger        logger.Interface
}

func NewRunDueChargesUseCase(
	subscriptions subscription.SubscriptionRepository,
	attempt *AttemptChargeUseCase,
	reattempt *ReattemptChargeUseCase,
	concurrency int,
	batchSize int,
	logger logger.Interface,
) *RunDueChargesUseCase {
	if concurrency <= 0 {
		concurrency = DefaultChargeConcurrency
	}
	if batchSize <= 0 {
		batchSize = DefaultChargeBatchSize
	}
	return &RunDueChargesUseCase{
		subscriptions: subscriptions,
		attempt:       attempt,
		reattempt:     reattempt,
		concurrency:   concurrency,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Execute returns how many subscriptions were attempted. A failure of one
// subscription is logged and does not stop the batch.
func (uc *RunDueChargesUseCase) Execute(ctx context.Context) (int, error) {
	due, err := uc.subscriptions.FindDue(ctx, biztime.NowUTC(), uc.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find due subscriptions: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var processed, succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for _, sub := range due {
		g.Go(func() error {
			var (
				result *ChargeAttemptResult
				err    error
			)
			if sub.Status() == vo.StatusSuspended {
				result, err = uc.reattempt.Execute(gctx, sub.ID())
			} else {
				result, err = uc.attempt.Execute(gctx, sub.ID())
			}
			processed.Add(1)

			switch {
			case err != nil && errors.IsConflictError(err):
				uc.logger.Debugw("subscription skipped", "subscription_sid", sub.SID(), "reason", err)
			case err != nil:
				uc.logger.Errorw("due charge failed", "subscription_sid", sub.SID(), "error", err)
			case result.Success:
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	uc.logger.Infow("due charges processed",
		"due", len(due),
		"processed", processed.Load(),
		"succeeded", succeeded.Load(),
	)
	return int(processed.Load()), nil
}
