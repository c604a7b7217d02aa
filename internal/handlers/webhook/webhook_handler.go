// internal/handlers/webhook/webhook_handler.go
package webhook

import (
	"net/http"

	"paysandbox-service/internal/domain/webhook"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/webhook"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	endpointService *service.EndpointService
}

func NewWebhookHandler(endpointService *service.EndpointService) *WebhookHandler {
	return &WebhookHandler{
		endpointService: endpointService,
	}
}

// RegisterEndpoint returns the signing secret. It is never shown again.
func (h *WebhookHandler) RegisterEndpoint(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var req webhook.CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	endpoint, err := h.endpointService.Register(c.Request.Context(), workspaceID, &req)
	if err != nil {
		response.FromError(c, "failed to register webhook endpoint", err)
		return
	}

	response.Success(c, http.StatusCreated, "webhook endpoint registered", endpoint)
}

func (h *WebhookHandler) ListEndpoints(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	endpoints, err := h.endpointService.List(c.Request.Context(), workspaceID)
	if err != nil {
		response.FromError(c, "failed to list webhook endpoints", err)
		return
	}

	response.Success(c, http.StatusOK, "webhook endpoints retrieved", endpoints)
}

func (h *WebhookHandler) GetEndpoint(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	endpoint, err := h.endpointService.Get(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to get webhook endpoint", err)
		return
	}

	response.Success(c, http.StatusOK, "webhook endpoint retrieved", endpoint)
}

func (h *WebhookHandler) DeleteEndpoint(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	if err := h.endpointService.Delete(c.Request.Context(), workspaceID, c.Param("id")); err != nil {
		response.FromError(c, "failed to delete webhook endpoint", err)
		return
	}

	response.Success(c, http.StatusOK, "webhook endpoint deleted", nil)
}

// TestEndpoint sends webhook.test synchronously and reports the outcome
func (h *WebhookHandler) TestEndpoint(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	result, err := h.endpointService.Test(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to test webhook endpoint", err)
		return
	}

	message := "test event delivered"
	if !result.Delivered {
		message = "test event was not delivered"
	}
	response.Success(c, http.StatusOK, message, result)
}
