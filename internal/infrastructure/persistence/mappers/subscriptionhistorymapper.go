package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
)

func SubscriptionHistoryToModel(h *subscription.SubscriptionHistory) (*models.SubscriptionHistoryModel, error) {
	model := &models.SubscriptionHistoryModel{
		ID:             h.ID(),
		SubscriptionID: h.SubscriptionID(),
		EventType:      string(h.EventType()),
		FromStatus:     h.FromStatus().String(),
		ToStatus:       h.ToStatus().String(),
		CreatedAt:      h.CreatedAt(),
	}
	if h.Reason() != "" {
		reason := clampReason(h.Reason())
		model.Reason = &reason
	}
	if len(h.Metadata()) > 0 {
		raw, err := json.Marshal(h.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history metadata: %w", err)
		}
		model.Metadata = datatypes.JSON(raw)
	}
	return model, nil
}

func SubscriptionHistoryToDomain(model *models.SubscriptionHistoryModel) (*subscription.SubscriptionHistory, error) {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history metadata: %w", err)
		}
	}

	var reason string
	if model.Reason != nil {
		reason = *model.Reason
	}

	return subscription.ReconstructSubscriptionHistory(
		model.ID,
		model.SubscriptionID,
		subscription.EventKind(model.EventType),
		vo.SubscriptionStatus(model.FromStatus),
		vo.SubscriptionStatus(model.ToStatus),
		reason,
		metadata,
		model.CreatedAt,
	)
}
