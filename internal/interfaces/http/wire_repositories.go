package http

import (
	"github.com/orris-inc/paybridge/internal/infrastructure/repository"
	"github.com/orris-inc/paybridge/internal/shared/db"
)

// repositories holds all repository instances used by the application.
// Types match the return types of the repository constructors.
type repositories struct {
	connectorRepo      *repository.ConnectorRepositoryImpl
	subscriptionRepo   *repository.SubscriptionRepositoryImpl
	historyRepo        *repository.SubscriptionHistoryRepository
	paymentRepo        *repository.PaymentRepository
	processedEventRepo *repository.ProcessedEventRepository
	txManager          *db.TransactionManager
}

func (c *Container) initRepositories() {
	c.repos = &repositories{
		connectorRepo:      repository.NewConnectorRepository(c.db, c.log),
		subscriptionRepo:   repository.NewSubscriptionRepository(c.db, c.log),
		historyRepo:        repository.NewSubscriptionHistoryRepository(c.db),
		paymentRepo:        repository.NewPaymentRepository(c.db),
		processedEventRepo: repository.NewProcessedEventRepository(c.db, c.log),
		txManager:          db.NewTransactionManager(c.db),
	}
}
