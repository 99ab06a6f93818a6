package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	billing "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	"github.com/orris-inc/paybridge/internal/shared/id"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

// SubscriptionHandler serves the admin view of locally mirrored subscriptions.
type SubscriptionHandler struct {
	registerUC  registerSubscriptionUseCase
	getUC       getSubscriptionUseCase
	listUC      listSubscriptionsUseCase
	chargeNowUC chargeNowUseCase
	logger      logger.Interface
}

func NewSubscriptionHandler(
	registerUC registerSubscriptionUseCase,
	getUC getSubscriptionUseCase,
	listUC listSubscriptionsUseCase,
	chargeNowUC chargeNowUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		registerUC:  registerUC,
		getUC:       getUC,
		listUC:      listUC,
		chargeNowUC: chargeNowUC,
		logger:      logger,
	}
}

type RegisterSubscriptionRequest struct {
	Gateway        string     `json:"gateway" binding:"required,oneof=mercadopago stripe"`
	ExternalID     string     `json:"external_id" binding:"required,max=255"`
	CustomerRef    string     `json:"customer_ref" binding:"max=255"`
	PlanRef        string     `json:"plan_ref" binding:"max=255"`
	Price          int64      `json:"price" binding:"gte=0"`
	Currency       string     `json:"currency" binding:"required,len=3"`
	DiscountAmount int64      `json:"discount_amount" binding:"gte=0"`
	DiscountKind   string     `json:"discount_kind" binding:"omitempty,oneof=none once n_months forever"`
	DiscountMonths int        `json:"discount_months" binding:"gte=0"`
	BillingPeriod  string     `json:"billing_period" binding:"omitempty,oneof=monthly yearly"`
	NextChargeAt   *time.Time `json:"next_charge_at"`
	AutoCharge     bool       `json:"auto_charge"`
}

// @Summary		Register subscription
// @Tags			subscriptions
// @Security		Bearer
// @Param			tenantId		path		string						true	"Tenant identifier"
// @Param			subscription	body		RegisterSubscriptionRequest	true	"Subscription data"
// @Success		201				{object}	utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure		409				{object}	utils.APIResponse	"Already registered"
// @Router			/admin/tenants/{tenantId}/subscriptions [post]
func (h *SubscriptionHandler) Register(c *gin.Context) {
	var req RegisterSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid register subscription request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.registerUC.Execute(c.Request.Context(), billing.RegisterSubscriptionCommand{
		TenantID:       c.Param("tenantId"),
		Gateway:        req.Gateway,
		ExternalID:     req.ExternalID,
		CustomerRef:    req.CustomerRef,
		PlanRef:        req.PlanRef,
		Price:          req.Price,
		Currency:       req.Currency,
		DiscountAmount: req.DiscountAmount,
		DiscountKind:   req.DiscountKind,
		DiscountMonths: req.DiscountMonths,
		BillingPeriod:  req.BillingPeriod,
		NextChargeAt:   req.NextChargeAt,
		AutoCharge:     req.AutoCharge,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "subscription registered successfully")
}

// @Summary		List subscriptions
// @Tags			subscriptions
// @Security		Bearer
// @Param			tenantId	path		string	true	"Tenant identifier"
// @Param			gateway		query		string	false	"Gateway filter"
// @Param			status		query		string	false	"Status filter"
// @Param			page		query		int		false	"Page number"
// @Param			page_size	query		int		false	"Page size"
// @Param			sort_by		query		string	false	"created_at, updated_at or next_charge_at"
// @Param			sort_order	query		string	false	"asc or desc"
// @Success		200			{object}	utils.APIResponse{data=usecases.ListSubscriptionsResult}
// @Router			/admin/tenants/{tenantId}/subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	p := utils.ParsePagination(c)

	result, err := h.listUC.Execute(c.Request.Context(), billing.ListSubscriptionsQuery{
		TenantID:  c.Param("tenantId"),
		Gateway:   c.Query("gateway"),
		Status:    c.Query("status"),
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// @Summary		Get subscription
// @Tags			subscriptions
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.SubscriptionDTO}
// @Failure		404	{object}	utils.APIResponse	"Not found"
// @Router			/admin/tenants/{tenantId}/subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	subscriptionSID, err := utils.ParseSIDParam(c, "id", id.PrefixSubscription, "subscription")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.getUC.Execute(c.Request.Context(), billing.GetSubscriptionQuery{
		TenantID:        c.Param("tenantId"),
		SubscriptionSID: subscriptionSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ChargeNow runs one charge attempt immediately. Gateway declines are
// reported in the body with a 200; only lock contention and lookup
// failures are errors.
//
// @Summary		Charge subscription now
// @Tags			subscriptions
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=usecases.ChargeAttemptResult}
// @Failure		409	{object}	utils.APIResponse	"Charge already in progress"
// @Router			/admin/tenants/{tenantId}/subscriptions/{id}/charge [post]
func (h *SubscriptionHandler) ChargeNow(c *gin.Context) {
	subscriptionSID, err := utils.ParseSIDParam(c, "id", id.PrefixSubscription, "subscription")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.chargeNowUC.Execute(c.Request.Context(), billing.ChargeNowCommand{
		TenantID:        c.Param("tenantId"),
		SubscriptionSID: subscriptionSID,
	})
	if err != nil {
		h.logger.Warnw("manual charge failed", "subscription_sid", subscriptionSID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}
