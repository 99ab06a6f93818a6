package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/interfaces/http/handlers"
	"github.com/orris-inc/paybridge/internal/interfaces/http/middleware"
	"github.com/orris-inc/paybridge/internal/shared/authorization"
)

// AdminRouteConfig holds dependencies for the tenant admin API.
type AdminRouteConfig struct {
	ConnectorHandler    *handlers.ConnectorHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// SetupAdminRoutes configures /admin/tenants/:tenantId. Admin tokens reach
// every tenant; operator tokens only their own.
func SetupAdminRoutes(engine *gin.Engine, cfg *AdminRouteConfig) {
	tenant := engine.Group("/admin/tenants/:tenantId")
	tenant.Use(cfg.AuthMiddleware.RequireAuth(), authorization.RequireTenantAccess())
	{
		connectors := tenant.Group("/connectors")
		{
			connectors.GET("", cfg.ConnectorHandler.List)
			connectors.POST("", authorization.RequireAdmin(), cfg.ConnectorHandler.Create)
			connectors.PUT("/:id/credentials", authorization.RequireAdmin(), cfg.ConnectorHandler.RotateCredentials)
			connectors.POST("/:id/verify", cfg.ConnectorHandler.Verify)
			connectors.POST("/:id/principal", authorization.RequireAdmin(), cfg.ConnectorHandler.SetPrincipal)
			connectors.DELETE("/:id", authorization.RequireAdmin(), cfg.ConnectorHandler.Deactivate)
		}

		subscriptions := tenant.Group("/subscriptions")
		{
			subscriptions.GET("", cfg.SubscriptionHandler.List)
			subscriptions.POST("", cfg.SubscriptionHandler.Register)
			subscriptions.GET("/:id", cfg.SubscriptionHandler.Get)
			subscriptions.POST("/:id/charge", cfg.SubscriptionHandler.ChargeNow)
		}
	}
}
