package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/paybridge/internal/domain/connector"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paybridge/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/db"
	apperrors "github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/mapper"
)

// ConnectorRepositoryImpl implements the connector.Repository interface
type ConnectorRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewConnectorRepository creates a new connector repository instance
func NewConnectorRepository(db *gorm.DB, logger logger.Interface) *ConnectorRepositoryImpl {
	return &ConnectorRepositoryImpl{db: db, logger: logger}
}

func (r *ConnectorRepositoryImpl) Create(ctx context.Context, c *connector.Connector) error {
	model := mappers.ConnectorToModel(c)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create connector", "tenant_id", model.TenantID, "gateway", model.Gateway, "error", err)
		return fmt.Errorf("failed to create connector: %w", err)
	}

	if err := c.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("connector created successfully", "id", model.ID, "sid", model.SID, "gateway", model.Gateway)
	return nil
}

// Update writes the connector with optimistic locking.
func (r *ConnectorRepositoryImpl) Update(ctx context.Context, c *connector.Connector) error {
	model := mappers.ConnectorToModel(c)
	previousVersion := model.Version - 1

	result := db.GetTxFromContext(ctx, r.db).Model(&models.ConnectorModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"credentials_cipher":    model.CredentialsCipher,
			"credentials_iv":        model.CredentialsIV,
			"credentials_tag":       model.CredentialsTag,
			"webhook_secret_cipher": model.WebhookSecretCipher,
			"webhook_secret_iv":     model.WebhookSecretIV,
			"webhook_secret_tag":    model.WebhookSecretTag,
			"credential_hint":       model.CredentialHint,
			"is_principal":          model.IsPrincipal,
			"verified":              model.Verified,
			"active":                model.Active,
			"error_count":           model.ErrorCount,
			"last_error":            model.LastError,
			"last_verified_at":      model.LastVerifiedAt,
			"version":               model.Version,
			"updated_at":            model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update connector", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update connector: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewConflictError("connector was modified concurrently")
	}

	return nil
}

func (r *ConnectorRepositoryImpl) GetBySID(ctx context.Context, tenantID, sid string) (*connector.Connector, error) {
	var model models.ConnectorModel

	if err := db.GetTxFromContext(ctx, r.db).
		Scopes(db.ForTenant(tenantID)).
		Where("sid = ?", sid).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrConnectorNotFound
		}
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}

	return mappers.ConnectorToDomain(&model)
}

func (r *ConnectorRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]*connector.Connector, error) {
	var connectorModels []*models.ConnectorModel

	if err := db.GetTxFromContext(ctx, r.db).
		Scopes(db.ForTenant(tenantID)).
		Order("gateway ASC").Order("created_at DESC").
		Find(&connectorModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}

	return mapper.MapSliceWithError(connectorModels, mappers.ConnectorToDomain)
}

func (r *ConnectorRepositoryImpl) ListActive(ctx context.Context, tenantID string, gateway shared.Gateway, env shared.Environment) ([]*connector.Connector, error) {
	var connectorModels []*models.ConnectorModel

	if err := db.GetTxFromContext(ctx, r.db).
		Scopes(db.ForTenant(tenantID)).
		Where("gateway = ? AND environment = ? AND active = ?", gateway.String(), env.String(), true).
		Order("is_principal DESC").
		Order("verified DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&connectorModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list active connectors: %w", err)
	}

	return mapper.MapSliceWithError(connectorModels, mappers.ConnectorToDomain)
}

func (r *ConnectorRepositoryImpl) CountActive(ctx context.Context, tenantID string, gateway shared.Gateway) (int64, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.ConnectorModel{}).
		Scopes(db.ForTenant(tenantID)).
		Where("gateway = ? AND active = ?", gateway.String(), true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active connectors: %w", err)
	}
	return count, nil
}

func (r *ConnectorRepositoryImpl) ClearPrincipal(ctx context.Context, tenantID string, gateway shared.Gateway, keepID uint) error {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.ConnectorModel{}).
		Scopes(db.ForTenant(tenantID)).
		Where("gateway = ? AND id <> ? AND is_principal = ?", gateway.String(), keepID, true).
		Updates(map[string]interface{}{
			"is_principal": false,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   biztime.NowUTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to clear principal connectors", "tenant_id", tenantID, "gateway", gateway, "error", result.Error)
		return fmt.Errorf("failed to clear principal connector: %w", result.Error)
	}
	return nil
}
