package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-core/config"
	"commerce-core/internal/adapter/gateway"
	httpHandler "commerce-core/internal/adapter/http/handler"
	pgStorage "commerce-core/internal/adapter/storage/postgres"
	redisStorage "commerce-core/internal/adapter/storage/redis"
	"commerce-core/internal/core/ports"
	"commerce-core/internal/service"
	"commerce-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("commerce-core", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Commerce Core")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	shipmentRepo := pgStorage.NewShipmentRepo(pool)
	itemRepo := pgStorage.NewShipmentItemRepo(pool)
	intentRepo := pgStorage.NewPaymentIntentRepo(pool)
	txnRepo := pgStorage.NewPaymentTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	webhookEvents := redisStorage.NewWebhookEventStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize payment provider gateway
	psp := gateway.NewHTTPGateway(cfg.Gateway, log)

	// Initialize business services
	shipmentSvc := service.NewShipmentService(shipmentRepo, itemRepo, transactor, log)
	paymentSvc := service.NewPaymentService(intentRepo, txnRepo, psp, idempotencyCache, transactor, log)
	webhookSvc := service.NewWebhookService(intentRepo, txnRepo, webhookEvents, transactor, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ShipmentSvc:    shipmentSvc,
		PaymentSvc:     paymentSvc,
		WebhookSvc:     webhookSvc,
		Gateway:        psp,
		RateLimitStore: rateLimitStore,
		RateLimitCfg:   cfg.RateLimit,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
