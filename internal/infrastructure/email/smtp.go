package email

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPEmailService struct {
	config SMTPConfig
	dialer sender
}

func NewSMTPEmailService(config SMTPConfig) *SMTPEmailService {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPEmailService{
		config: config,
		dialer: dialer,
	}
}

func (s *SMTPEmailService) SendRetryCyclesExhaustedEmail(to, tenantID, subscriptionSID, externalID string, cycles int) error {
	subject := fmt.Sprintf("[paybridge] Subscription %s cancelled after %d retry cycles", subscriptionSID, cycles)
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Retry cycles exhausted</h2>
			<p>Subscription <b>%s</b> of tenant <b>%s</b> stayed suspended through %d retry cycles and has been cancelled.</p>
			<p>Gateway subscription id: %s</p>
			<p>The subscription was also cancelled at the gateway. No further charges will be attempted.</p>
		</body>
		</html>
	`, html.EscapeString(subscriptionSID), html.EscapeString(tenantID), cycles, html.EscapeString(externalID))

	plainBody := fmt.Sprintf(`
Retry cycles exhausted

Subscription %s of tenant %s stayed suspended through %d retry cycles and has been cancelled.
Gateway subscription id: %s

The subscription was also cancelled at the gateway. No further charges will be attempted.
	`, subscriptionSID, tenantID, cycles, externalID)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPEmailService) SendConnectorVerificationFailedEmail(to, tenantID, connectorSID, gateway, reason string) error {
	subject := fmt.Sprintf("[paybridge] %s connector %s failed verification", gateway, connectorSID)
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Connector verification failed</h2>
			<p>The %s connector <b>%s</b> of tenant <b>%s</b> could not authenticate against the gateway.</p>
			<p>Reason: %s</p>
			<p>Rotate the credentials or mark another connector as principal.</p>
		</body>
		</html>
	`, html.EscapeString(gateway), html.EscapeString(connectorSID), html.EscapeString(tenantID), html.EscapeString(reason))

	plainBody := fmt.Sprintf(`
Connector verification failed

The %s connector %s of tenant %s could not authenticate against the gateway.
Reason: %s

Rotate the credentials or mark another connector as principal.
	`, gateway, connectorSID, tenantID, reason)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPEmailService) sendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
