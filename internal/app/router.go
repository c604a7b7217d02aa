// internal/app/router.go
package app

import (
	"net/http"

	checkoutHandler "paysandbox-service/internal/handlers/checkout"
	customerHandler "paysandbox-service/internal/handlers/customer"
	fraudHandler "paysandbox-service/internal/handlers/fraud"
	schedulerHandler "paysandbox-service/internal/handlers/scheduler"
	sessionHandler "paysandbox-service/internal/handlers/session"
	subscriptionHandler "paysandbox-service/internal/handlers/subscription"
	webhookHandler "paysandbox-service/internal/handlers/webhook"
	wsHandler "paysandbox-service/internal/handlers/websocket"
	"paysandbox-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	CheckoutHandler     *checkoutHandler.CheckoutHandler
	SessionHandler      *sessionHandler.SessionHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	WebhookHandler      *webhookHandler.WebhookHandler
	ReviewHandler       *fraudHandler.ReviewHandler
	CustomerHandler     *customerHandler.CustomerHandler
	SchedulerHandler    *schedulerHandler.SchedulerHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	MetricsHandler      http.Handler
	CheckoutRateLimit   gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	if h.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.MetricsHandler))
	}

	// ==================== WebSocket ====================
	r.GET("/ws/events", h.WSHandler.HandleConnection)

	// ==================== Hosted Checkout (public) ====================
	// Served at the root so CheckoutURL links resolve directly
	checkout := r.Group("/checkout")
	{
		checkout.GET("/:id", h.CheckoutHandler.GetCheckout)

		attempts := checkout.Group("")
		if h.CheckoutRateLimit != nil {
			attempts.Use(h.CheckoutRateLimit)
		}
		attempts.POST("/:id/pay", h.CheckoutHandler.Pay)
		attempts.POST("/:id/cancel", h.CheckoutHandler.Cancel)
	}

	// ==================== Checkout Sessions ====================
	sessions := api.Group("/sessions")
	sessions.Use(h.AuthMiddleware.Auth())
	{
		sessions.POST("", h.SessionHandler.CreateSession)
		sessions.GET("", h.SessionHandler.ListSessions)
		sessions.GET("/:id", h.SessionHandler.GetSession)
		sessions.POST("/:id/process", h.SessionHandler.ProcessSession)
		sessions.POST("/:id/refund", h.SessionHandler.RefundSession)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.POST("", h.SubscriptionHandler.CreateSubscription)
		subscriptions.GET("", h.SubscriptionHandler.ListSubscriptions)
		subscriptions.GET("/:id", h.SubscriptionHandler.GetSubscription)
		subscriptions.POST("/:id/cancel", h.SubscriptionHandler.CancelSubscription)
		subscriptions.POST("/:id/pause", h.SubscriptionHandler.PauseSubscription)
		subscriptions.POST("/:id/resume", h.SubscriptionHandler.ResumeSubscription)
	}

	// ==================== Webhook Endpoints ====================
	webhooks := api.Group("/webhooks")
	webhooks.Use(h.AuthMiddleware.Auth())
	{
		webhooks.POST("", h.WebhookHandler.RegisterEndpoint)
		webhooks.GET("", h.WebhookHandler.ListEndpoints)
		webhooks.GET("/:id", h.WebhookHandler.GetEndpoint)
		webhooks.DELETE("/:id", h.WebhookHandler.DeleteEndpoint)
		webhooks.POST("/:id/test", h.WebhookHandler.TestEndpoint)
	}

	// ==================== Fraud Reviews ====================
	reviews := api.Group("/fraud/reviews")
	reviews.Use(h.AuthMiddleware.Auth())
	{
		reviews.GET("", h.ReviewHandler.ListReviews)
		reviews.POST("/:id/resolve", h.ReviewHandler.ResolveReview)
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.Auth())
	{
		customers.GET("", h.CustomerHandler.GetCustomerByEmail) // ?email=xxx
	}

	// ==================== Scheduler ====================
	scheduler := api.Group("/scheduler")
	scheduler.Use(h.AuthMiddleware.Auth())
	{
		scheduler.GET("/status", h.SchedulerHandler.Status)
		scheduler.POST("/run", h.SchedulerHandler.RunTick)
	}

	// ==================== Live Events ====================
	events := api.Group("/events")
	events.Use(h.AuthMiddleware.Auth())
	{
		events.GET("/stats", h.WSHandler.GetStats)
	}

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
