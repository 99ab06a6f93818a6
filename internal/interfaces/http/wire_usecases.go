package http

import (
	"github.com/orris-inc/paybridge/internal/application/billing/services"
	billingUsecases "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	connectorUsecases "github.com/orris-inc/paybridge/internal/application/connector/usecases"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	"github.com/orris-inc/paybridge/internal/infrastructure/retry"
)

// allUseCases holds every use case the handlers and background jobs call.
type allUseCases struct {
	// Connectors
	createConnectorUC     *connectorUsecases.CreateConnectorUseCase
	listConnectorsUC      *connectorUsecases.ListConnectorsUseCase
	rotateCredentialsUC   *connectorUsecases.RotateCredentialsUseCase
	verifyConnectorUC     *connectorUsecases.VerifyConnectorUseCase
	setPrincipalUC        *connectorUsecases.SetPrincipalUseCase
	deactivateConnectorUC *connectorUsecases.DeactivateConnectorUseCase

	// Billing
	registerSubscriptionUC *billingUsecases.RegisterSubscriptionUseCase
	getSubscriptionUC      *billingUsecases.GetSubscriptionUseCase
	listSubscriptionsUC    *billingUsecases.ListSubscriptionsUseCase
	processWebhookEventUC  *billingUsecases.ProcessWebhookEventUseCase
	ingestWebhookUC        *billingUsecases.IngestWebhookUseCase
	attemptChargeUC        *billingUsecases.AttemptChargeUseCase
	reattemptChargeUC      *billingUsecases.ReattemptChargeUseCase
	chargeNowUC            *billingUsecases.ChargeNowUseCase
	runDueChargesUC        *billingUsecases.RunDueChargesUseCase
	sweepAbandonedUC       *billingUsecases.SweepAbandonedEventsUseCase
}

func (c *Container) initConnectors() {
	log := c.log.Named("connector")

	c.ucs.createConnectorUC = connectorUsecases.NewCreateConnectorUseCase(
		c.repos.connectorRepo, c.vault, c.connectorBus, c.repos.txManager, log)
	c.ucs.listConnectorsUC = connectorUsecases.NewListConnectorsUseCase(c.repos.connectorRepo, log)
	c.ucs.rotateCredentialsUC = connectorUsecases.NewRotateCredentialsUseCase(
		c.repos.connectorRepo, c.vault, c.connectorBus, log)
	c.ucs.verifyConnectorUC = connectorUsecases.NewVerifyConnectorUseCase(
		c.repos.connectorRepo, c.vault, c.gateways, c.connectorBus, c.notifier, log)
	c.ucs.setPrincipalUC = connectorUsecases.NewSetPrincipalUseCase(
		c.repos.connectorRepo, c.connectorBus, c.repos.txManager, log)
	c.ucs.deactivateConnectorUC = connectorUsecases.NewDeactivateConnectorUseCase(
		c.repos.connectorRepo, c.repos.subscriptionRepo, c.connectorBus, log)
}

func (c *Container) initBilling() {
	log := c.log.Named("billing")
	billing := c.cfg.Billing
	env := c.environment()
	policy := retry.PolicyFromConfig(billing.Retry)
	settings := billingUsecases.ChargeSettings{
		MaxRetryCycles:    billing.MaxRetryCycles,
		ReattemptInterval: billing.ReattemptInterval,
		Environment:       env,
	}

	guard := services.NewIdempotencyGuard(c.repos.processedEventRepo, log)
	applier := services.NewEventApplier(
		c.repos.subscriptionRepo,
		c.repos.historyRepo,
		subscription.NewStateMachine(billing.FailureThreshold),
		c.repos.txManager,
		log,
	)

	c.ucs.registerSubscriptionUC = billingUsecases.NewRegisterSubscriptionUseCase(c.repos.subscriptionRepo, log)
	c.ucs.getSubscriptionUC = billingUsecases.NewGetSubscriptionUseCase(
		c.repos.subscriptionRepo, c.repos.historyRepo, c.repos.paymentRepo, log)
	c.ucs.listSubscriptionsUC = billingUsecases.NewListSubscriptionsUseCase(c.repos.subscriptionRepo, log)

	c.ucs.processWebhookEventUC = billingUsecases.NewProcessWebhookEventUseCase(
		c.gateways,
		c.directory,
		guard,
		applier,
		c.repos.subscriptionRepo,
		c.repos.subscriptionRepo,
		c.repos.paymentRepo,
		c.ucs.registerSubscriptionUC,
		policy,
		env,
		billing.ReattemptInterval,
		log,
	)
	c.ucs.ingestWebhookUC = billingUsecases.NewIngestWebhookUseCase(
		c.gateways, c.directory, guard, c.ucs.processWebhookEventUC, env, billing.ProcessingTimeout, log)

	c.ucs.attemptChargeUC = billingUsecases.NewAttemptChargeUseCase(
		c.repos.subscriptionRepo,
		c.repos.paymentRepo,
		applier,
		c.directory,
		c.gateways,
		c.chargeLock,
		policy,
		settings,
		log,
	)
	c.ucs.reattemptChargeUC = billingUsecases.NewReattemptChargeUseCase(
		c.ucs.attemptChargeUC, applier, c.directory, c.gateways, c.notifier, log)
	c.ucs.chargeNowUC = billingUsecases.NewChargeNowUseCase(
		c.repos.subscriptionRepo, c.ucs.attemptChargeUC, c.ucs.reattemptChargeUC, log)
	c.ucs.runDueChargesUC = billingUsecases.NewRunDueChargesUseCase(
		c.repos.subscriptionRepo, c.ucs.attemptChargeUC, c.ucs.reattemptChargeUC,
		billing.ChargeConcurrency, billing.ChargeBatchSize, log)
	c.ucs.sweepAbandonedUC = billingUsecases.NewSweepAbandonedEventsUseCase(
		c.repos.processedEventRepo, guard, billing.AbandonedAfter, log)
}
