package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	connector "github.com/orris-inc/paybridge/internal/application/connector/usecases"
	"github.com/orris-inc/paybridge/internal/shared/id"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

// ConnectorHandler serves tenant connector administration.
type ConnectorHandler struct {
	createUC       createConnectorUseCase
	listUC         listConnectorsUseCase
	rotateUC       rotateCredentialsUseCase
	verifyUC       verifyConnectorUseCase
	setPrincipalUC setPrincipalUseCase
	deactivateUC   deactivateConnectorUseCase
	logger         logger.Interface
}

func NewConnectorHandler(
	createUC createConnectorUseCase,
	listUC listConnectorsUseCase,
	rotateUC rotateCredentialsUseCase,
	verifyUC verifyConnectorUseCase,
	setPrincipalUC setPrincipalUseCase,
	deactivateUC deactivateConnectorUseCase,
	logger logger.Interface,
) *ConnectorHandler {
	return &ConnectorHandler{
		createUC:       createUC,
		listUC:         listUC,
		rotateUC:       rotateUC,
		verifyUC:       verifyUC,
		setPrincipalUC: setPrincipalUC,
		deactivateUC:   deactivateUC,
		logger:         logger,
	}
}

type CreateConnectorRequest struct {
	Gateway       string            `json:"gateway" binding:"required,oneof=mercadopago stripe"`
	Environment   string            `json:"environment" binding:"required,oneof=sandbox production"`
	Credentials   map[string]string `json:"credentials" binding:"required,min=1"`
	WebhookSecret string            `json:"webhook_secret"`
}

type RotateCredentialsRequest struct {
	Credentials   map[string]string `json:"credentials" binding:"required,min=1"`
	WebhookSecret string            `json:"webhook_secret"`
}

// @Summary		Create connector
// @Tags			connectors
// @Security		Bearer
// @Param			tenantId	path		string					true	"Tenant identifier"
// @Param			connector	body		CreateConnectorRequest	true	"Connector data"
// @Success		201			{object}	utils.APIResponse{data=dto.ConnectorDTO}
// @Router			/admin/tenants/{tenantId}/connectors [post]
func (h *ConnectorHandler) Create(c *gin.Context) {
	var req CreateConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid create connector request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.createUC.Execute(c.Request.Context(), connector.CreateConnectorCommand{
		TenantID:      c.Param("tenantId"),
		Gateway:       req.Gateway,
		Environment:   req.Environment,
		Credentials:   req.Credentials,
		WebhookSecret: req.WebhookSecret,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "connector created successfully")
}

// @Summary		List connectors
// @Tags			connectors
// @Security		Bearer
// @Param			tenantId	path		string	true	"Tenant identifier"
// @Success		200			{object}	utils.APIResponse{data=[]dto.ConnectorDTO}
// @Router			/admin/tenants/{tenantId}/connectors [get]
func (h *ConnectorHandler) List(c *gin.Context) {
	result, err := h.listUC.Execute(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// @Summary		Rotate connector credentials
// @Tags			connectors
// @Security		Bearer
// @Router			/admin/tenants/{tenantId}/connectors/{id}/credentials [put]
func (h *ConnectorHandler) RotateCredentials(c *gin.Context) {
	connectorSID, err := utils.ParseSIDParam(c, "id", id.PrefixConnector, "connector")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RotateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.rotateUC.Execute(c.Request.Context(), connector.RotateCredentialsCommand{
		TenantID:      c.Param("tenantId"),
		ConnectorSID:  connectorSID,
		Credentials:   req.Credentials,
		WebhookSecret: req.WebhookSecret,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "credentials rotated successfully", result)
}

// Verify makes an authenticated gateway call with the stored credentials.
// A failed verification is still a 200; the DTO carries last_error.
//
// @Summary		Verify connector
// @Tags			connectors
// @Security		Bearer
// @Router			/admin/tenants/{tenantId}/connectors/{id}/verify [post]
func (h *ConnectorHandler) Verify(c *gin.Context) {
	connectorSID, err := utils.ParseSIDParam(c, "id", id.PrefixConnector, "connector")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.verifyUC.Execute(c.Request.Context(), connector.VerifyConnectorCommand{
		TenantID:     c.Param("tenantId"),
		ConnectorSID: connectorSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// @Summary		Make connector principal
// @Tags			connectors
// @Security		Bearer
// @Router			/admin/tenants/{tenantId}/connectors/{id}/principal [post]
func (h *ConnectorHandler) SetPrincipal(c *gin.Context) {
	connectorSID, err := utils.ParseSIDParam(c, "id", id.PrefixConnector, "connector")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.setPrincipalUC.Execute(c.Request.Context(), connector.SetPrincipalCommand{
		TenantID:     c.Param("tenantId"),
		ConnectorSID: connectorSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "connector is now principal", result)
}

// @Summary		Deactivate connector
// @Tags			connectors
// @Security		Bearer
// @Router			/admin/tenants/{tenantId}/connectors/{id} [delete]
func (h *ConnectorHandler) Deactivate(c *gin.Context) {
	connectorSID, err := utils.ParseSIDParam(c, "id", id.PrefixConnector, "connector")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.deactivateUC.Execute(c.Request.Context(), connector.DeactivateConnectorCommand{
		TenantID:     c.Param("tenantId"),
		ConnectorSID: connectorSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "connector deactivated", result)
}
