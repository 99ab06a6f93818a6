package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/paybridge/internal/application/billing/dto"
	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/domain/subscription"
	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	sharedquery "github.com/orris-inc/paybridge/internal/shared/query"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

type ListSubscriptionsQuery struct {
	TenantID  string
	Gateway   string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

var subscriptionSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"next_charge_at": true,
}

type ListSubscriptionsResult struct {
	Subscriptions []*dto.SubscriptionDTO `json:"subscriptions"`
	Total         int64                  `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
	TotalPages    int                    `json:"total_pages"`
}

type ListSubscriptionsUseCase struct {
	subscriptions subscription.SubscriptionRepository
	logger        logger.Interface
}

func NewListSubscriptionsUseCase(subscriptions subscription.SubscriptionRepository, logger logger.Interface) *ListSubscriptionsUseCase {
	return &ListSubscriptionsUseCase{subscriptions: subscriptions, logger: logger}
}

func (uc *ListSubscriptionsUseCase) Execute(ctx context.Context, query ListSubscriptionsQuery) (*ListSubscriptionsResult, error) {
	if query.TenantID == "" {
		return nil, errors.NewValidationError("tenant ID is required")
	}
	p := utils.ValidatePagination(query.Page, query.PageSize)

	if query.SortBy != "" && !subscriptionSortFields[query.SortBy] {
		return nil, errors.NewValidationError("unsupported sort field", query.SortBy)
	}
	if query.SortOrder != "" && query.SortOrder != "asc" && query.SortOrder != "desc" {
		return nil, errors.NewValidationError("sort order must be asc or desc", query.SortOrder)
	}

	filter := subscription.SubscriptionFilter{
		BaseFilter: sharedquery.NewBaseFilter(
			sharedquery.WithPage(p.Page, p.PageSize),
			sharedquery.WithSort(query.SortBy, query.SortOrder),
		),
		TenantID: query.TenantID,
	}
	if query.Gateway != "" {
		gw := shared.Gateway(query.Gateway)
		if !gw.IsValid() {
			return nil, errors.NewValidationError("unsupported gateway", query.Gateway)
		}
		filter.Gateway = &gw
	}
	if query.Status != "" {
		status := vo.SubscriptionStatus(query.Status)
		if !vo.ValidStatuses[status] {
			return nil, errors.NewValidationError("invalid status", query.Status)
		}
		filter.Status = &status
	}

	subs, total, err := uc.subscriptions.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list subscriptions", "tenant_id", query.TenantID, "error", err)
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return &ListSubscriptionsResult{
		Subscriptions: dto.ToSubscriptionDTOs(subs),
		Total:         total,
		Page:          p.Page,
		PageSize:      p.PageSize,
		TotalPages:    utils.TotalPages(total, p.PageSize),
	}, nil
}
