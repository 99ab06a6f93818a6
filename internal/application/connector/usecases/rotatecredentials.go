package usecases

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/infrastructure/vault"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// RotateCredentialsCommand replaces a connector's credentials. An empty
// WebhookSecret keeps the stored one.
type RotateCredentialsCommand struct {
	TenantID      string
	ConnectorSID  string
	Credentials   map[string]string
	WebhookSecret string
}

type RotateCredentialsUseCase struct {
	repo        connector.Repository
	sealer      CredentialSealer
	invalidator CacheInvalidator
	logger      logger.Interface
}

func NewRotateCredentialsUseCase(
	repo connector.Repository,
	sealer CredentialSealer,
	invalidator CacheInvalidator,
	logger logger.Interface,
) *RotateCredentialsUseCase {
	return &RotateCredentialsUseCase{
		repo:        repo,
		sealer:      sealer,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (uc *RotateCredentialsUseCase) Execute(ctx context.Context, cmd RotateCredentialsCommand) (*dto.ConnectorDTO, error) {
	c, err := getConnector(ctx, uc.repo, cmd.TenantID, cmd.ConnectorSID)
	if err != nil {
		return nil, err
	}
	if err := validateCredentials(c.Gateway(), cmd.Credentials); err != nil {
		return nil, err
	}

	creds, secret, err := sealSecrets(uc.sealer, cmd.Credentials, cmd.WebhookSecret)
	if err != nil {
		uc.logger.Errorw("failed to seal connector credentials", "connector_sid", c.SID(), "error", err)
		return nil, errors.NewInternalError("failed to store credentials")
	}

	if err := c.RotateCredentials(creds, secret, vault.Hint(c.Gateway(), cmd.Credentials)); err != nil {
		if stderrors.Is(err, connector.ErrConnectorInactive) {
			return nil, errors.NewConflictError("connector is inactive", c.SID())
		}
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.repo.Update(ctx, c); err != nil {
		uc.logger.Errorw("failed to update connector", "connector_sid", c.SID(), "error", err)
		return nil, fmt.Errorf("failed to update connector: %w", err)
	}

	// Invalidate only after the write is durable
	uc.invalidator.Invalidate(c.TenantID())

	uc.logger.Infow("connector credentials rotated",
		"tenant_id", c.TenantID(),
		"connector_sid", c.SID(),
		"hint", c.CredentialHint(),
		"webhook_secret_rotated", secret != nil,
	)
	return dto.ToConnectorDTO(c), nil
}
