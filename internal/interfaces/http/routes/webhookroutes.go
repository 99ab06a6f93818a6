package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/interfaces/http/handlers"
	"github.com/orris-inc/paybridge/internal/interfaces/http/middleware"
)

// WebhookRouteConfig holds dependencies for gateway webhook routes.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    *middleware.RateLimiter
}

// SetupWebhookRoutes configures the public notification endpoint. It carries
// no admin auth; every delivery is authenticated by its gateway signature.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	if cfg.RateLimiter != nil {
		webhooks.Use(cfg.RateLimiter.Limit())
	}
	{
		webhooks.POST("/:gateway/:tenantId", cfg.WebhookHandler.Receive)
	}
}
