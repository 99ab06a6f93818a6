package migration

import (
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.ConnectorModel{},
		&models.SubscriptionModel{},
		&models.SubscriptionHistoryModel{},
		&models.PaymentModel{},
		&models.ProcessedWebhookEventModel{},
	}
}
