package handlers

import (
	"context"

	billingdto "github.com/orris-inc/paybridge/internal/application/billing/dto"
	billing "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	connectordto "github.com/orris-inc/paybridge/internal/application/connector/dto"
	connector "github.com/orris-inc/paybridge/internal/application/connector/usecases"
)

// Use case interfaces for WebhookHandler

type ingestWebhookUseCase interface {
	Execute(ctx context.Context, cmd billing.IngestWebhookCommand) (*billing.IngestWebhookResult, error)
}

// Use case interfaces for ConnectorHandler

type createConnectorUseCase interface {
	Execute(ctx context.Context, cmd connector.CreateConnectorCommand) (*connectordto.ConnectorDTO, error)
}

type listConnectorsUseCase interface {
	Execute(ctx context.Context, tenantID string) ([]*connectordto.ConnectorDTO, error)
}

type rotateCredentialsUseCase interface {
	Execute(ctx context.Context, cmd connector.RotateCredentialsCommand) (*connectordto.ConnectorDTO, error)
}

type verifyConnectorUseCase interface {
	Execute(ctx context.Context, cmd connector.VerifyConnectorCommand) (*connectordto.ConnectorDTO, error)
}

type setPrincipalUseCase interface {
	Execute(ctx context.Context, cmd connector.SetPrincipalCommand) (*connectordto.ConnectorDTO, error)
}

type deactivateConnectorUseCase interface {
	Execute(ctx context.Context, cmd connector.DeactivateConnectorCommand) (*connectordto.ConnectorDTO, error)
}

// Use case interfaces for SubscriptionHandler

type registerSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd billing.RegisterSubscriptionCommand) (*billingdto.SubscriptionDTO, error)
}

type getSubscriptionUseCase interface {
	Execute(ctx context.Context, query billing.GetSubscriptionQuery) (*billingdto.SubscriptionDTO, error)
}

type listSubscriptionsUseCase interface {
	Execute(ctx context.Context, query billing.ListSubscriptionsQuery) (*billing.ListSubscriptionsResult, error)
}

type chargeNowUseCase interface {
	Execute(ctx context.Context, cmd billing.ChargeNowCommand) (*billing.ChargeAttemptResult, error)
}
