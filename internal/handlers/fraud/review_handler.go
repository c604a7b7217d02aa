// internal/handlers/fraud/review_handler.go
package fraud

import (
	"net/http"

	"paysandbox-service/internal/domain/fraud"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	sessionService *service.SessionService
}

func NewReviewHandler(sessionService *service.SessionService) *ReviewHandler {
	return &ReviewHandler{
		sessionService: sessionService,
	}
}

func (h *ReviewHandler) ListReviews(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var filters fraud.ReviewListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	reviews, err := h.sessionService.ListReviews(c.Request.Context(), workspaceID, filters.Status)
	if err != nil {
		response.FromError(c, "failed to list fraud reviews", err)
		return
	}

	response.Success(c, http.StatusOK, "fraud reviews retrieved", reviews)
}

// ResolveReview approves or rejects a held payment
func (h *ReviewHandler) ResolveReview(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var req fraud.ResolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	review, sess, err := h.sessionService.ResolveReview(c.Request.Context(), workspaceID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to resolve fraud review", err)
		return
	}

	response.Success(c, http.StatusOK, "fraud review resolved", gin.H{
		"review":  review,
		"session": sess,
	})
}
