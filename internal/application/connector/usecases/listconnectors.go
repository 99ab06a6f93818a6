package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type ListConnectorsUseCase struct {
	repo   connector.Repository
	logger logger.Interface
}

func NewListConnectorsUseCase(repo connector.Repository, logger logger.Interface) *ListConnectorsUseCase {
	return &ListConnectorsUseCase{repo: repo, logger: logger}
}

func (uc *ListConnectorsUseCase) Execute(ctx context.Context, tenantID string) ([]*dto.ConnectorDTO, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant ID is required")
	}
	connectors, err := uc.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		uc.logger.Errorw("failed to list connectors", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	return dto.ToConnectorDTOs(connectors), nil
}
