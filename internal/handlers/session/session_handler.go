// internal/handlers/session/session_handler.go
package session

import (
	"net/http"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

type createSessionResponse struct {
	*session.Session
	CheckoutURL string `json:"checkout_url"`
}

// CreateSession opens a pending checkout session
func (h *SessionHandler) CreateSession(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var req session.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), workspaceID, &req)
	if err != nil {
		response.FromError(c, "failed to create session", err)
		return
	}

	response.Success(c, http.StatusCreated, "session created", createSessionResponse{
		Session:     sess,
		CheckoutURL: h.sessionService.CheckoutURL(sess.ID),
	})
}

// ListSessions lists the workspace's sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	var filters session.SessionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.sessionService.List(c.Request.Context(), workspaceID, &filters)
	if err != nil {
		response.FromError(c, "failed to list sessions", err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", result)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	sess, err := h.sessionService.GetForWorkspace(c.Request.Context(), workspaceID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to get session", err)
		return
	}

	response.Success(c, http.StatusOK, "session retrieved", sess)
}

// ProcessSession charges a session on behalf of the merchant (server-side flow)
func (h *SessionHandler) ProcessSession(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)
	id := c.Param("id")

	var req session.ProcessSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if _, err := h.sessionService.GetForWorkspace(c.Request.Context(), workspaceID, id); err != nil {
		response.FromError(c, "failed to process session", err)
		return
	}

	sess, err := h.sessionService.Process(c.Request.Context(), id, session.ProcessInput{
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.FromError(c, "failed to process session", err)
		return
	}

	response.Success(c, http.StatusOK, "session processed", sess)
}

func (h *SessionHandler) RefundSession(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)
	id := c.Param("id")

	var req session.RefundSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if _, err := h.sessionService.GetForWorkspace(c.Request.Context(), workspaceID, id); err != nil {
		response.FromError(c, "failed to refund session", err)
		return
	}

	sess, err := h.sessionService.Refund(c.Request.Context(), id, req.Amount)
	if err != nil {
		response.FromError(c, "failed to refund session", err)
		return
	}

	response.Success(c, http.StatusOK, "session refunded", sess)
}
