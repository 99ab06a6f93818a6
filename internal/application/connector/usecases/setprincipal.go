package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type SetPrincipalCommand struct {
	TenantID     string
	ConnectorSID string
}

type SetPrincipalUseCase struct {
	repo        connector.Repository
	invalidator CacheInvalidator
	tx          TransactionRunner
	logger      logger.Interface
}

func NewSetPrincipalUseCase(
	repo connector.Repository,
	invalidator CacheInvalidator,
	tx TransactionRunner,
	logger logger.Interface,
) *SetPrincipalUseCase {
	return &SetPrincipalUseCase{
		repo:        repo,
		invalidator: invalidator,
		tx:          tx,
		logger:      logger,
	}
}

// Execute makes the connector the principal of its gateway. Siblings are
// cleared in the same transaction.
func (uc *SetPrincipalUseCase) Execute(ctx context.Context, cmd SetPrincipalCommand) (*dto.ConnectorDTO, error) {
	var result *connector.Connector
	err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := getConnector(ctx, uc.repo, cmd.TenantID, cmd.ConnectorSID)
		if err != nil {
			return err
		}
		if err := c.MarkPrincipal(); err != nil {
			return errors.NewConflictError("connector is inactive", c.SID())
		}
		if err := uc.repo.ClearPrincipal(ctx, c.TenantID(), c.Gateway(), c.ID()); err != nil {
			return fmt.Errorf("failed to clear sibling principals: %w", err)
		}
		if err := uc.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to update connector: %w", err)
		}
		result = c
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to set principal connector",
			"tenant_id", cmd.TenantID,
			"connector_sid", cmd.ConnectorSID,
			"error", err,
		)
		return nil, err
	}

	uc.invalidator.Invalidate(result.TenantID())

	uc.logger.Infow("principal connector set",
		"tenant_id", result.TenantID(),
		"connector_sid", result.SID(),
		"gateway", result.Gateway(),
	)
	return dto.ToConnectorDTO(result), nil
}
