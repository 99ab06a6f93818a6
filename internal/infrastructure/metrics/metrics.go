// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paybridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paybridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Webhook metrics
	webhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paybridge_webhooks_received_total",
			Help: "Webhook deliveries by gateway and HTTP status returned",
		},
		[]string{"gateway", "status"},
	)

	webhooksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paybridge_webhooks_processed_total",
			Help: "Detached webhook processing results by gateway and outcome",
		},
		[]string{"gateway", "outcome"},
	)

	// Billing metrics
	chargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paybridge_charges_total",
			Help: "Charge attempts by gateway and result",
		},
		[]string{"gateway", "result"},
	)

	gatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paybridge_gateway_retries_total",
			Help: "Outbound gateway call retries by gateway and operation",
		},
		[]string{"gateway", "operation"},
	)
)

func ObserveHTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func IncWebhookReceived(gateway, status string) {
	webhooksReceivedTotal.WithLabelValues(gateway, status).Inc()
}

func IncWebhookProcessed(gateway, outcome string) {
	webhooksProcessedTotal.WithLabelValues(gateway, outcome).Inc()
}

// IncCharge records a charge attempt; result is success, failed, pending or error.
func IncCharge(gateway, result string) {
	chargesTotal.WithLabelValues(gateway, result).Inc()
}

func IncGatewayRetry(gateway, operation string) {
	gatewayRetriesTotal.WithLabelValues(gateway, operation).Inc()
}
