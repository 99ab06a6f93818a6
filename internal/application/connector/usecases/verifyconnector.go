package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/paybridge/internal/application/connector/dto"
	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/infrastructure/email"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const verifyTimeout = 15 * time.Second

type VerifyConnectorCommand struct {
	TenantID     string
	ConnectorSID string
}

// VerifyConnectorUseCase proves a connector's credentials with a cheap
// authenticated gateway call and records the result.
type VerifyConnectorUseCase struct {
	repo        connector.Repository
	sealer      CredentialSealer
	clients     ClientFactory
	invalidator CacheInvalidator
	notifier    email.Notifier
	logger      logger.Interface
}

func NewVerifyConnectorUseCase(
	repo connector.Repository,
	sealer CredentialSealer,
	clients ClientFactory,
	invalidator CacheInvalidator,
	notifier email.Notifier,
	logger logger.Interface,
) *VerifyConnectorUseCase {
	return &VerifyConnectorUseCase{
		repo:        repo,
		sealer:      sealer,
		clients:     clients,
		invalidator: invalidator,
		notifier:    notifier,
		logger:      logger,
	}
}

func (uc *VerifyConnectorUseCase) Execute(ctx context.Context, cmd VerifyConnectorCommand) (*dto.ConnectorDTO, error) {
	c, err := getConnector(ctx, uc.repo, cmd.TenantID, cmd.ConnectorSID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, errors.NewConflictError("connector is inactive", c.SID())
	}

	probeErr := uc.probe(ctx, c)
	now := biztime.NowUTC()
	if probeErr != nil {
		c.RecordVerificationFailure(probeErr.Error(), now)
	} else {
		c.MarkVerified(now)
	}

	if err := uc.repo.Update(ctx, c); err != nil {
		uc.logger.Errorw("failed to update connector", "connector_sid", c.SID(), "error", err)
		return nil, fmt.Errorf("failed to update connector: %w", err)
	}
	uc.invalidator.Invalidate(c.TenantID())

	if probeErr != nil {
		uc.logger.Warnw("connector verification failed",
			"tenant_id", c.TenantID(),
			"connector_sid", c.SID(),
			"gateway", c.Gateway(),
			"error_count", c.ErrorCount(),
			"error", probeErr,
		)
		if err := uc.notifier.NotifyConnectorVerificationFailed(ctx, c.TenantID(), c.SID(), c.Gateway().String(), probeErr.Error()); err != nil {
			uc.logger.Errorw("failed to notify connector verification failure", "connector_sid", c.SID(), "error", err)
		}
	} else {
		uc.logger.Infow("connector verified", "tenant_id", c.TenantID(), "connector_sid", c.SID())
	}

	return dto.ToConnectorDTO(c), nil
}

func (uc *VerifyConnectorUseCase) probe(ctx context.Context, c *connector.Connector) error {
	creds := c.Credentials()
	values, err := uc.sealer.Decrypt(creds.Ciphertext, creds.IV, creds.Tag)
	if err != nil {
		return fmt.Errorf("credentials unreadable")
	}

	client, err := uc.clients.Client(gateway.Credentials{
		Gateway:     c.Gateway(),
		Environment: c.Environment(),
		Values:      values,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		if gateway.IsUnauthorized(err) {
			return fmt.Errorf("credentials rejected: %w", err)
		}
		return err
	}
	return nil
}
