// internal/handlers/checkout/checkout_handler.go
package checkout

import (
	"net/http"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler serves the public payment page. Anyone holding the session
// ID may view, pay or cancel it.
type CheckoutHandler struct {
	sessionService *service.SessionService
}

func NewCheckoutHandler(sessionService *service.SessionService) *CheckoutHandler {
	return &CheckoutHandler{
		sessionService: sessionService,
	}
}

func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	view, err := h.sessionService.Checkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "checkout unavailable", err)
		return
	}

	response.Success(c, http.StatusOK, "checkout retrieved", view)
}

func (h *CheckoutHandler) Pay(c *gin.Context) {
	var req session.ProcessSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sess, err := h.sessionService.Process(c.Request.Context(), c.Param("id"), session.ProcessInput{
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.FromError(c, "payment failed", err)
		return
	}

	data := gin.H{
		"id":     sess.ID,
		"status": sess.Status,
	}
	switch sess.Status {
	case session.StatusCompleted:
		if sess.SuccessURL != "" {
			data["redirect_url"] = sess.SuccessURL
		}
	case session.StatusFailed:
		data["failure_reason"] = sess.FailureReason
		if sess.CancelURL != "" {
			data["redirect_url"] = sess.CancelURL
		}
	}

	response.Success(c, http.StatusOK, "payment processed", data)
}

func (h *CheckoutHandler) Cancel(c *gin.Context) {
	sess, err := h.sessionService.CancelCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to cancel checkout", err)
		return
	}

	data := gin.H{"id": sess.ID, "status": sess.Status}
	if sess.CancelURL != "" {
		data["redirect_url"] = sess.CancelURL
	}
	response.Success(c, http.StatusOK, "checkout cancelled", data)
}
