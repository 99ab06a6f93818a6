package http

import (
	"context"

	"github.com/orris-inc/paybridge/internal/interfaces/http/handlers"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	webhookHandler      *handlers.WebhookHandler
	connectorHandler    *handlers.ConnectorHandler
	subscriptionHandler *handlers.SubscriptionHandler
	healthHandler       *handlers.HealthHandler
}

func (c *Container) initHandlers() {
	c.hdlrs = &allHandlers{
		webhookHandler: handlers.NewWebhookHandler(c.ucs.ingestWebhookUC, c.log.Named("webhook")),
		connectorHandler: handlers.NewConnectorHandler(
			c.ucs.createConnectorUC,
			c.ucs.listConnectorsUC,
			c.ucs.rotateCredentialsUC,
			c.ucs.verifyConnectorUC,
			c.ucs.setPrincipalUC,
			c.ucs.deactivateConnectorUC,
			c.log,
		),
		subscriptionHandler: handlers.NewSubscriptionHandler(
			c.ucs.registerSubscriptionUC,
			c.ucs.getSubscriptionUC,
			c.ucs.listSubscriptionsUC,
			c.ucs.chargeNowUC,
			c.log,
		),
		healthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingerFunc(func(ctx context.Context) error {
				sqlDB, err := c.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}),
			"redis": handlers.PingerFunc(func(ctx context.Context) error {
				return c.redis.Ping(ctx).Err()
			}),
		}),
	}
}
