package handler

import (
	"commerce-core/config"
	"commerce-core/internal/adapter/http/middleware"
	redisStore "commerce-core/internal/adapter/storage/redis"
	"commerce-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ShipmentSvc    ports.ShipmentService
	PaymentSvc     ports.PaymentService
	WebhookSvc     ports.WebhookService
	Gateway        ports.PaymentGateway
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimitCfg   config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.RateLimitStore != nil && deps.RateLimitCfg.Enabled {
		r.Use(middleware.RateLimiter(deps.RateLimitStore, deps.RateLimitCfg, deps.Logger))
	}

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	shipmentHandler := NewShipmentHandler(deps.ShipmentSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	webhookHandler := NewWebhookHandler(deps.WebhookSvc, deps.Gateway)

	v1 := r.Group("/api/v1")

	shipments := v1.Group("/shipments")
	{
		shipments.POST("", shipmentHandler.Create)
		shipments.GET("", shipmentHandler.List)
		shipments.GET("/:id", shipmentHandler.Get)
		shipments.PATCH("/:id", shipmentHandler.UpdateDetails)
		shipments.DELETE("/:id", shipmentHandler.Delete)
		shipments.PATCH("/:id/status", shipmentHandler.UpdateStatus)
		shipments.POST("/:id/items", shipmentHandler.AddItem)
		shipments.PATCH("/:id/items/:orderItemId", shipmentHandler.UpdateItem)
		shipments.DELETE("/:id/items/:orderItemId", shipmentHandler.RemoveItem)
	}

	intents := v1.Group("/payment-intents")
	{
		intents.POST("", paymentHandler.Create)
		intents.GET("/:id", paymentHandler.Get)
		intents.POST("/:id/authorize", paymentHandler.Authorize)
		intents.POST("/:id/capture", paymentHandler.Capture)
		intents.POST("/:id/cancel", paymentHandler.Cancel)
		intents.POST("/:id/refund", paymentHandler.Refund)
		intents.POST("/:id/fail", paymentHandler.Fail)
		intents.GET("/:id/transactions", paymentHandler.ListTransactions)
	}

	v1.GET("/orders/:orderId/payment-intent", paymentHandler.GetByOrder)
	v1.POST("/webhooks/payments/:provider", webhookHandler.Receive)

	return r
}
