package email

import (
	"context"

	"github.com/orris-inc/paybridge/internal/shared/config"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

// AdminNotifier emails operator alerts to a single admin address.
type AdminNotifier struct {
	service *SMTPEmailService
	to      string
	logger  logger.Interface
}

// NopNotifier only logs. It is used when SMTP is not configured.
type NopNotifier struct {
	logger logger.Interface
}

// Notifier is implemented by AdminNotifier and NopNotifier.
type Notifier interface {
	NotifyRetryCyclesExhausted(ctx context.Context, tenantID, subscriptionSID, externalID string, cycles int) error
	NotifyConnectorVerificationFailed(ctx context.Context, tenantID, connectorSID, gateway, reason string) error
}

// NewNotifier returns an SMTP notifier, or a NopNotifier when smtp_host or
// admin_email is empty.
func NewNotifier(cfg config.NotificationConfig, log logger.Interface) Notifier {
	if cfg.SMTPHost == "" || cfg.AdminEmail == "" {
		log.Debugw("admin notifications disabled, smtp_host or admin_email is empty")
		return &NopNotifier{logger: log}
	}

	service := NewSMTPEmailService(SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    "paybridge",
	})
	log.Infow("admin notifications enabled", "smtp_host", cfg.SMTPHost, "admin_email", utils.MaskEmail(cfg.AdminEmail))
	return &AdminNotifier{service: service, to: cfg.AdminEmail, logger: log}
}

func (n *AdminNotifier) NotifyRetryCyclesExhausted(_ context.Context, tenantID, subscriptionSID, externalID string, cycles int) error {
	if err := n.service.SendRetryCyclesExhaustedEmail(n.to, tenantID, subscriptionSID, externalID, cycles); err != nil {
		n.logger.Errorw("failed to send retry exhaustion alert", "subscription_sid", subscriptionSID, "error", err)
		return err
	}
	return nil
}

func (n *AdminNotifier) NotifyConnectorVerificationFailed(_ context.Context, tenantID, connectorSID, gateway, reason string) error {
	if err := n.service.SendConnectorVerificationFailedEmail(n.to, tenantID, connectorSID, gateway, reason); err != nil {
		n.logger.Errorw("failed to send connector alert", "connector_sid", connectorSID, "error", err)
		return err
	}
	return nil
}

func (n *NopNotifier) NotifyRetryCyclesExhausted(_ context.Context, tenantID, subscriptionSID, _ string, cycles int) error {
	n.logger.Warnw("retry cycles exhausted", "tenant_id", tenantID, "subscription_sid", subscriptionSID, "cycles", cycles)
	return nil
}

func (n *NopNotifier) NotifyConnectorVerificationFailed(_ context.Context, tenantID, connectorSID, gateway, reason string) error {
	n.logger.Warnw("connector verification failed", "tenant_id", tenantID, "connector_sid", connectorSID, "gateway", gateway, "reason", reason)
	return nil
}
