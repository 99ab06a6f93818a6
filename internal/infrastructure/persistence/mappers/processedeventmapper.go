package mappers

import (
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/webhook"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
)

func ProcessedEventToModel(e *webhook.ProcessedEvent) *models.ProcessedWebhookEventModel {
	model := &models.ProcessedWebhookEventModel{
		ID:         e.ID(),
		Gateway:    e.Gateway().String(),
		RequestID:  e.RequestID(),
		EventType:  e.EventType(),
		DataID:     e.DataID(),
		TenantID:   e.TenantID(),
		Outcome:    string(e.Outcome()),
		SourceIP:   e.SourceIP(),
		Accepted:   e.IsAccepted(),
		ReceivedAt: e.ReceivedAt(),
	}
	if e.Message() != "" {
		msg := clampReason(e.Message())
		model.Message = &msg
	}
	return model
}

func ProcessedEventToDomain(model *models.ProcessedWebhookEventModel) (*webhook.ProcessedEvent, error) {
	var message string
	if model.Message != nil {
		message = *model.Message
	}
	return webhook.ReconstructProcessedEvent(
		model.ID,
		shared.Gateway(model.Gateway),
		model.RequestID,
		model.EventType,
		model.DataID,
		model.TenantID,
		webhook.Outcome(model.Outcome),
		message,
		model.SourceIP,
		model.Accepted,
		model.ReceivedAt,
	)
}
