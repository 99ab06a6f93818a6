package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

func TestNewManager_StrategyByEnvironment(t *testing.T) {
	assert.Equal(t, "gorm_auto_migrate", NewManager(constants.EnvDevelopment, "").GetStrategy().GetName())
	assert.Equal(t, "goose", NewManager(constants.EnvProduction, "").GetStrategy().GetName())
	assert.Equal(t, "goose", NewManager(constants.EnvTest, "").GetStrategy().GetName())
}

func TestGormAutoMigrateStrategy_CreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, NewManagerWithStrategy(NewGormAutoMigrateStrategy()).Migrate(db))

	for _, table := range []string{
		constants.TablePaymentConnectors,
		constants.TableBillingSubscriptions,
		constants.TableSubscriptionHistory,
		constants.TableBillingPayments,
		constants.TableProcessedWebhookEvents,
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedScriptsPresent(t *testing.T) {
	entries, err := embeddedScripts.ReadDir(embeddedScriptsDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
