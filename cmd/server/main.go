package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rank-api/internal/api"
	"rank-api/internal/config"
	"rank-api/internal/database"
	"rank-api/internal/middleware"
	"rank-api/internal/services"
	"rank-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config:", err)
	}

	// Initialize logging
	if err := logging.InitLogging(cfg.LogLevel, cfg.Mode == gin.DebugMode); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	redisClient, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize Redis:", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	store := database.NewPurchaseStore(db)

	// Provisioning pipeline
	opts := []services.ProvisionerOption{
		services.WithMaxAttempts(cfg.MaxAttempts),
		services.WithCommandTemplate(cfg.RCONCommandTemplate),
	}
	if cfg.AlertsEnabled() {
		notifier := services.NewAlertNotifier(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName, cfg.AlertEmail)
		opts = append(opts, services.WithFailureNotifier(notifier))
		logging.Infof("Failure alerts enabled (to: %s)", cfg.AlertEmail)
	}
	dialer := services.NewRCONDialer(cfg.RCONAddress(), cfg.RCONPassword, cfg.RCONTimeout)
	provisioner := services.NewRankProvisioner(store, dialer, opts...)
	dispatcher := services.NewDispatcher()

	deps := api.Dependencies{
		Verifier:  services.NewWebhookVerifier(cfg.WebhookSecret),
		Ledger:    store,
		Processor: services.NewOrderProcessor(store, provisioner, dispatcher, cfg.NickPropertyName),
		Purchases: store,
		AdminUser: cfg.AdminUser,
		AdminPass: cfg.AdminPass,

		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if redisClient != nil {
		deps.OrderLock = services.NewRedisOrderLock(redisClient)
		deps.WebhookLimiter = middleware.NewRedisRateLimiter(redisClient, cfg.WebhookRateLimit, cfg.RateLimitWindow)
		deps.AdminLimiter = middleware.NewRedisRateLimiter(redisClient, cfg.AdminRateLimit, cfg.RateLimitWindow)
	} else {
		deps.OrderLock = services.NewLocalOrderLock()
		deps.WebhookLimiter = middleware.NewMemoryRateLimiter(cfg.WebhookRateLimit, cfg.RateLimitWindow)
		deps.AdminLimiter = middleware.NewMemoryRateLimiter(cfg.AdminRateLimit, cfg.RateLimitWindow)
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogMiddleware())

	// Setup routes
	api.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Infof("Received %s, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("HTTP server shutdown: %v", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		logging.Errorf("Provisioning runs cancelled at shutdown: %v", err)
	}

	stats := dispatcher.Stats()
	logging.Infof("Server stopped (provisioned: %d, errored: %d, panicked: %d)", stats.Succeeded, stats.Errored, stats.Panicked)
}
