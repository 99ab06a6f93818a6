package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type DeactivateConnectorCommand struct {
	TenantID     string
	ConnectorSID string
}

type DeactivateConnectorUseCase struct {
	repo          connector.Repository
	subscriptions ActiveSubscriptionCounter
	invalidator   CacheInvalidator
	logger        logger.Interface
}

func NewDeactivateConnectorUseCase(
	repo connector.Repository,
	subscriptions ActiveSubscriptionCounter,
	invalidator CacheInvalidator,
	logger logger.Interface,
) *DeactivateConnectorUseCase {
	return &DeactivateConnectorUseCase{
		repo:          repo,
		subscriptions: subscriptions,
		invalidator:   invalidator,
		logger:        logger,
	}
}

// Execute soft-disables a connector. The last active connector of a gateway
// that still carries live subscriptions cannot be disabled.
func (uc *DeactivateConnectorUseCase) Execute(ctx context.Context, cmd DeactivateConnectorCommand) (*dto.ConnectorDTO, error) {
	c, err := getConnector(ctx, uc.repo, cmd.TenantID, cmd.ConnectorSID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return dto.ToConnectorDTO(c), nil
	}

	activeConnectors, err := uc.repo.CountActive(ctx, c.TenantID(), c.Gateway())
	if err != nil {
		return nil, fmt.Errorf("failed to count active connectors: %w", err)
	}
	if activeConnectors <= 1 {
		activeSubs, err := uc.subscriptions.CountActiveByGateway(ctx, c.TenantID(), c.Gateway())
		if err != nil {
			return nil, fmt.Errorf("failed to count active subscriptions: %w", err)
		}
		if activeSubs > 0 {
			uc.logger.Warnw("refusing to deactivate last active connector",
				"tenant_id", c.TenantID(),
				"connector_sid", c.SID(),
				"active_subscriptions", activeSubs,
			)
			return nil, errors.NewConflictError(connector.ErrLastActiveConnector.Error(), c.SID())
		}
	}

	c.Deactivate()
	if err := uc.repo.Update(ctx, c); err != nil {
		uc.logger.Errorw("failed to update connector", "connector_sid", c.SID(), "error", err)
		return nil, fmt.Errorf("failed to update connector: %w", err)
	}

	uc.invalidator.Invalidate(c.TenantID())

	uc.logger.Infow("connector deactivated", "tenant_id", c.TenantID(), "connector_sid", c.SID())
	return dto.ToConnectorDTO(c), nil
}
