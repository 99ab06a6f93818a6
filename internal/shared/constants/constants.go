package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeyAdminSubject = "admin_subject"
	ContextKeyAdminRole    = "admin_role"
	ContextKeyAdminTenant  = "admin_tenant"
	ContextKeyRequestID    = "request_id"

	// Database table names
	TablePaymentConnectors      = "payment_connectors"
	TableBillingSubscriptions   = "billing_subscriptions"
	TableSubscriptionHistory    = "billing_subscription_history"
	TableBillingPayments        = "billing_payments"
	TableProcessedWebhookEvents = "processed_webhook_events"

	// Error messages
	ErrMsgInternalServerError  = "Internal server error occurred"
	ErrMsgGatewayNotConfigured = "Payment gateway is not configured"
)
