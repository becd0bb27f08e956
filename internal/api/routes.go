package api

import (
	"context"
	"net/http"
	"time"

	"rank-api/internal/config"
	"rank-api/internal/middleware"
	"rank-api/internal/models"
	"rank-api/internal/services"

	"github.com/gin-gonic/gin"
)

// OrderLedger is the part of the ledger the webhook reads.
type OrderLedger interface {
	Exists(ctx context.Context, orderID string) (bool, error)
}

// OrderProcessor records and dispatches the line items of one order.
type OrderProcessor interface {
	Process(ctx context.Context, order *models.ShopifyOrder) (services.ProcessResult, error)
}

// PurchaseLister serves the admin listing.
type PurchaseLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Purchase, error)
	FindByOrder(ctx context.Context, orderID string) ([]models.Purchase, error)
}

// Dependencies wires the handlers to their services.
type Dependencies struct {
	Verifier  *services.WebhookVerifier
	Ledger    OrderLedger
	Processor OrderProcessor
	OrderLock services.OrderLock
	Purchases PurchaseLister

	AdminUser string
	AdminPass string

	// MaxBodyBytes caps webhook bodies; zero means config.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	WebhookLimiter middleware.RateLimiter
	AdminLimiter   middleware.RateLimiter
}

// Handler serves the HTTP endpoints.
type Handler struct {
	verifier  *services.WebhookVerifier
	ledger    OrderLedger
	processor OrderProcessor
	lock      services.OrderLock
	purchases PurchaseLister
	maxBody   int64
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	h := &Handler{
		verifier:  deps.Verifier,
		ledger:    deps.Ledger,
		processor: deps.Processor,
		lock:      deps.OrderLock,
		purchases: deps.Purchases,
		maxBody:   deps.MaxBodyBytes,
	}
	if h.lock == nil {
		h.lock = services.NewLocalOrderLock()
	}
	if h.maxBody <= 0 {
		h.maxBody = config.DefaultMaxBodyBytes
	}

	r.Use(middleware.SecurityHeadersMiddleware())

	// Shopify webhooks (HMAC authenticated)
	webhook := r.Group("/webhook")
	if deps.WebhookLimiter != nil {
		webhook.Use(middleware.RateLimitMiddleware("webhook", deps.WebhookLimiter))
	}
	{
		webhook.POST("/orders/paid", h.OrderPaid)
	}

	// Admin routes (basic auth)
	admin := r.Group("/api")
	if deps.AdminLimiter != nil {
		admin.Use(middleware.RateLimitMiddleware("admin", deps.AdminLimiter))
	}
	admin.Use(middleware.AdminAuthMiddleware(deps.AdminUser, deps.AdminPass))
	{
		admin.GET("/purchases", h.ListPurchases)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
