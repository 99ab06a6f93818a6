package usecases

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/orris-inc/paybridge/internal/application/billing/services"
	connectorapp "github.com/orris-inc/paybridge/internal/application/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/gateway"
	"github.com/orris-inc/paybridge/internal/infrastructure/metrics"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/goroutine"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const (
	DefaultProcessingTimeout = 60 * time.Second

	msgInvalidSignature   = "invalid signature"
	msgNotConfigured      = "gateway not configured"
	msgSecretMissing      = "webhook secret not configured"
	msgCredentialsBroken  = "connector credentials unreadable"
	msgUnsupportedWebhook = "unsupported notification type"
)

type IngestWebhookCommand struct {
	Gateway  string
	TenantID string
	Headers  http.Header
	Query    url.Values
	Body     []byte
	SourceIP string
}

type IngestWebhookResult struct {
	Deduplicated bool
}

// IngestWebhookUseCase authenticates and deduplicates an inbound notification,
// acknowledges it and hands the domain work to a detached task.
type IngestWebhookUseCase struct {
	gateways    GatewayFactory
	resolver    connectorapp.Resolver
	guard       *services.IdempotencyGuard
	processor   *ProcessWebhookEventUseCase
	environment shared.Environment
	timeout     time.Duration
	logger      logger.Interface

	inflight sync.WaitGroup
}

func NewIngestWebhookUseCase(
	gateways GatewayFactory,
	resolver connectorapp.Resolver,
	guard *services.IdempotencyGuard,
	processor *ProcessWebhookEventUseCase,
	environment shared.Environment,
	timeout time.Duration,
	logger logger.Interface,
) *IngestWebhookUseCase {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	return &IngestWebhookUseCase{
		gateways:    gateways,
		resolver:    resolver,
		guard:       guard,
		processor:   processor,
		environment: environment,
		timeout:     timeout,
		logger:      logger,
	}
}

// Execute returns a nil error only for deliveries the gateway should not
// resend. Errors are AppErrors carrying the HTTP status to answer with.
func (uc *IngestWebhookUseCase) Execute(ctx context.Context, cmd IngestWebhookCommand) (*IngestWebhookResult, error) {
	gw := shared.Gateway(cmd.Gateway)
	if !gw.IsValid() {
		return nil, errors.NewBadRequestError("unsupported gateway")
	}
	if cmd.TenantID == "" {
		return nil, errors.NewBadRequestError("tenant is required")
	}

	adapter, err := uc.gateways.WebhookAdapter(gw)
	if err != nil {
		return nil, errors.NewBadRequestError("unsupported gateway")
	}

	in := gateway.InboundWebhook{Headers: cmd.Headers, Query: cmd.Query, Body: cmd.Body}
	n, err := adapter.Parse(in)
	if err != nil {
		uc.logger.Warnw("malformed webhook", "gateway", gw, "tenant_id", cmd.TenantID, "source_ip", cmd.SourceIP, "error", err)
		metrics.IncWebhookReceived(gw.String(), "malformed")
		return nil, errors.NewBadRequestError("malformed webhook")
	}

	log := uc.logger.With("gateway", gw, "tenant_id", cmd.TenantID, "request_id", n.RequestID, "data_id", n.DataID)

	exists, err := uc.guard.Exists(ctx, gw, n.RequestID)
	if err != nil {
		log.Errorw("failed to check webhook dedup record", "error", err)
		metrics.IncWebhookReceived(gw.String(), "error")
		return nil, errors.NewInternalError("failed to process webhook")
	}
	if exists {
		log.Infow("duplicate webhook ignored")
		metrics.IncWebhookReceived(gw.String(), "duplicate")
		return &IngestWebhookResult{Deduplicated: true}, nil
	}

	reject := func(message string) {
		uc.guard.Reject(ctx, gw, n.RequestID, n.Type, n.DataID, cmd.SourceIP, cmd.TenantID, message)
	}

	creds, err := uc.resolver.ResolvePrincipal(ctx, cmd.TenantID, gw, uc.environment)
	switch {
	case stderrors.Is(err, connectorapp.ErrNotConfigured):
		log.Warnw("webhook for tenant without connector")
		reject(msgNotConfigured)
		metrics.IncWebhookReceived(gw.String(), "not_configured")
		return nil, errors.NewUnavailableError("webhook receiver is not configured")
	case err != nil:
		log.Errorw("failed to resolve connector for webhook", "error", err)
		reject(msgCredentialsBroken)
		metrics.IncWebhookReceived(gw.String(), "error")
		return nil, errors.NewInternalError("webhook receiver is misconfigured")
	case creds.WebhookSecret == "":
		log.Warnw("connector has no webhook secret", "connector_sid", creds.ConnectorID)
		reject(msgSecretMissing)
		metrics.IncWebhookReceived(gw.String(), "not_configured")
		return nil, errors.NewUnavailableError("webhook receiver is not configured")
	}

	if !adapter.Verify(in, n, creds.WebhookSecret) {
		log.Warnw("webhook signature rejected", "source_ip", cmd.SourceIP)
		reject(msgInvalidSignature)
		metrics.IncWebhookReceived(gw.String(), "unauthorized")
		return nil, errors.NewUnauthorizedError(msgInvalidSignature)
	}

	claimed, err := uc.guard.Record(ctx, gw, n.RequestID, n.Type, n.DataID, cmd.SourceIP, cmd.TenantID)
	if err != nil {
		log.Errorw("failed to record webhook", "error", err)
		metrics.IncWebhookReceived(gw.String(), "error")
		return nil, errors.NewInternalError("failed to process webhook")
	}
	if !claimed {
		log.Infow("concurrent duplicate webhook ignored")
		metrics.IncWebhookReceived(gw.String(), "duplicate")
		return &IngestWebhookResult{Deduplicated: true}, nil
	}
	metrics.IncWebhookReceived(gw.String(), "accepted")

	if n.Kind == gateway.NotificationIgnored {
		if err := uc.guard.Finalize(ctx, gw, n.RequestID, webhook.OutcomeSkipped, msgUnsupportedWebhook, cmd.TenantID); err != nil {
			log.Errorw("failed to finalize ignored webhook", "error", err)
		}
		metrics.IncWebhookProcessed(gw.String(), string(webhook.OutcomeSkipped))
		return &IngestWebhookResult{}, nil
	}

	pcmd := ProcessWebhookEventCommand{
		Gateway:   gw,
		TenantID:  cmd.TenantID,
		RequestID: n.RequestID,
		DataID:    n.DataID,
		Kind:      n.Kind,
	}
	uc.inflight.Add(1)
	goroutine.Detach(uc.logger, "webhook-process", uc.timeout, func(ctx context.Context) {
		uc.processor.Execute(ctx, pcmd)
	}, uc.inflight.Done)

	return &IngestWebhookResult{}, nil
}

// Wait blocks until every detached processing task started so far has finished.
func (uc *IngestWebhookUseCase) Wait() {
	uc.inflight.Wait()
}
