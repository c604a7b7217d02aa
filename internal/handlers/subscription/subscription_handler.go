// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"

	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var req subscription.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.subscriptionService.CreateSubscription(c.Request.Context(), workspaceID, &req)
	if err != nil {
		response.FromError(c, "failed to create subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription created", result)
}

func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var filters subscription.SubscriptionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), workspaceID, &filters)
	if err != nil {
		response.FromError(c, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to get subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", sub)
}

// CancelSubscription cancels now, or at period end when at_period_end is set
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var req subscription.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sub, err := h.subscriptionService.CancelSubscription(c.Request.Context(), workspaceID, c.Param("id"), req.AtPeriodEnd)
	if err != nil {
		response.FromError(c, "failed to cancel subscription", err)
		return
	}

	message := "subscription canceled"
	if req.AtPeriodEnd {
		message = "subscription will cancel at period end"
	}
	response.Success(c, http.StatusOK, message, sub)
}

func (h *SubscriptionHandler) PauseSubscription(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	sub, err := h.subscriptionService.PauseSubscription(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to pause subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription paused", sub)
}

func (h *SubscriptionHandler) ResumeSubscription(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	sub, err := h.subscriptionService.ResumeSubscription(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to resume subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription resumed", sub)
}
