package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/vault"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

type CreateConnectorCommand struct {
	TenantID      string            `json:"tenant_id" validate:"required"`
	Gateway       string            `json:"gateway" validate:"gateway"`
	Environment   string            `json:"environment" validate:"environment"`
	Credentials   map[string]string `json:"credentials" validate:"required,min=1"`
	WebhookSecret string            `json:"webhook_secret"`
}

type CreateConnectorUseCase struct {
	repo        connector.Repository
	sealer      CredentialSealer
	invalidator CacheInvalidator
	tx          TransactionRunner
	logger      logger.Interface
}

func NewCreateConnectorUseCase(
	repo connector.Repository,
	sealer CredentialSealer,
	invalidator CacheInvalidator,
	tx TransactionRunner,
	logger logger.Interface,
) *CreateConnectorUseCase {
	return &CreateConnectorUseCase{
		repo:        repo,
		sealer:      sealer,
		invalidator: invalidator,
		tx:          tx,
		logger:      logger,
	}
}

// Execute stores a new connector. The first active connector of a tenant for
// a gateway becomes its principal.
func (uc *CreateConnectorUseCase) Execute(ctx context.Context, cmd CreateConnectorCommand) (*dto.ConnectorDTO, error) {
	gw := shared.Gateway(cmd.Gateway)
	env := shared.Environment(cmd.Environment)
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	if err := validateCredentials(gw, cmd.Credentials); err != nil {
		return nil, err
	}

	uc.logger.Infow("executing create connector use case", "tenant_id", cmd.TenantID, "gateway", gw, "environment", env)

	creds, secret, err := sealSecrets(uc.sealer, cmd.Credentials, cmd.WebhookSecret)
	if err != nil {
		uc.logger.Errorw("failed to seal connector credentials", "tenant_id", cmd.TenantID, "error", err)
		return nil, errors.NewInternalError("failed to store credentials")
	}

	c, err := connector.NewConnector(cmd.TenantID, gw, env, creds, secret, vault.Hint(gw, cmd.Credentials))
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		count, err := uc.repo.CountActive(ctx, cmd.TenantID, gw)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := c.MarkPrincipal(); err != nil {
				return err
			}
		}
		if err := uc.repo.Create(ctx, c); err != nil {
			return err
		}
		if c.IsPrincipal() {
			return uc.repo.ClearPrincipal(ctx, cmd.TenantID, gw, c.ID())
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to create connector", "tenant_id", cmd.TenantID, "gateway", gw, "error", err)
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	uc.invalidator.Invalidate(cmd.TenantID)

	uc.logger.Infow("connector created successfully",
		"tenant_id", cmd.TenantID,
		"connector_sid", c.SID(),
		"gateway", gw,
		"principal", c.IsPrincipal(),
		"hint", c.CredentialHint(),
	)
	return dto.ToConnectorDTO(c), nil
}
