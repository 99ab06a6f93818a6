package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billing "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

// maxWebhookBodyBytes bounds what a gateway notification may carry.
const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	ingestUC ingestWebhookUseCase
	logger   logger.Interface
}

func NewWebhookHandler(ingestUC ingestWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		ingestUC: ingestUC,
		logger:   logger,
	}
}

type WebhookAckResponse struct {
	Received     bool `json:"received"`
	Deduplicated bool `json:"deduplicated"`
}

// Receive acknowledges one gateway notification. The body is passed on
// byte-for-byte since signatures may cover it.
//
// @Summary		Receive gateway webhook
// @Tags			webhooks
// @Accept			json
// @Produce		json
// @Param			gateway		path		string	true	"mercadopago or stripe"
// @Param			tenantId	path		string	true	"Tenant identifier"
// @Success		200			{object}	WebhookAckResponse
// @Failure		400			{object}	utils.APIResponse	"Malformed notification"
// @Failure		401			{object}	utils.APIResponse	"Invalid signature"
// @Failure		503			{object}	utils.APIResponse	"Receiver not configured"
// @Router			/webhooks/{gateway}/{tenantId} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "error", err, "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxWebhookBodyBytes {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	result, err := h.ingestUC.Execute(c.Request.Context(), billing.IngestWebhookCommand{
		Gateway:  c.Param("gateway"),
		TenantID: c.Param("tenantId"),
		Headers:  c.Request.Header.Clone(),
		Query:    c.Request.URL.Query(),
		Body:     body,
		SourceIP: c.ClientIP(),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookAckResponse{
		Received:     true,
		Deduplicated: result.Deduplicated,
	})
}
