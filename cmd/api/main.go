// Package main is the entry point for the AirBear API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/airbearhq/airbear/internal/api"
	"github.com/airbearhq/airbear/internal/auth"
	"github.com/airbearhq/airbear/internal/config"
	"github.com/airbearhq/airbear/internal/db"
	"github.com/airbearhq/airbear/internal/health"
	"github.com/airbearhq/airbear/internal/idempotency"
	"github.com/airbearhq/airbear/internal/location"
	"github.com/airbearhq/airbear/internal/loyalty"
	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/order"
	"github.com/airbearhq/airbear/internal/payment"
	"github.com/airbearhq/airbear/internal/realtime"
	"github.com/airbearhq/airbear/internal/ride"
	"github.com/airbearhq/airbear/internal/stats"
	"github.com/airbearhq/airbear/internal/tracing"
)

const serviceName = "airbear-api"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env vars take precedence)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("AirBear API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Repositories and services.
	rideRepo := ride.NewPostgresRepository(database)
	orderRepo := order.NewPostgresRepository(database)
	paymentRepo := payment.NewPostgresRepository(database)
	webhookRepo := payment.NewPostgresWebhookRepository(database)
	loyaltyRepo := loyalty.NewPostgresRepository(database)
	idempotencyRepo := idempotency.NewInMemoryRepository()
	locationStore := location.NewStore(redisClient)
	statsService := stats.New(database)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	stripeClient := payment.NewStripeClient(cfg.StripeAPIKey)

	reconciler := payment.NewReconciler(
		orderRepo, rideRepo, paymentRepo, loyaltyRepo,
		int64(cfg.LoyaltyPointsPerUnit), logger,
	)

	hub := realtime.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// Expired client idempotency keys are swept in the background.
	cleanupStop := make(chan struct{})
	go idempotency.RunPeriodicCleanup(idempotencyRepo, time.Hour, idempotency.DefaultExpiry, cleanupStop)
	defer close(cleanupStop)

	// Handlers.
	webhookHandlers := api.NewWebhookHandlers(cfg.StripeWebhookSecret, webhookRepo, reconciler, metrics)
	rideHandlers := api.NewRideHandlers(rideRepo)
	paymentHandlers := api.NewPaymentHandlers(rideRepo, stripeClient, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	locationHandlers := api.NewLocationHandlers(locationStore, hub)
	loyaltyHandlers := api.NewLoyaltyHandlers(loyaltyRepo)
	statsHandlers := api.NewStatsHandlers(statsService)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(database),
		RedisChecker: health.NewRedisChecker(redisClient),
	})

	authMW := middleware.Auth(jwtService)
	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	driverOnly := middleware.RequireRole(auth.RoleDriver)
	idempotent := middleware.Idempotency(idempotencyRepo, map[string]bool{
		"/rides": true,
	})

	mux := http.NewServeMux()

	// Webhook endpoint: Stripe authenticates via signature, not JWT.
	mux.HandleFunc("POST /internal/stripe", webhookHandlers.HandleStripeWebhook)

	mux.Handle("POST /rides", authMW(idempotent(http.HandlerFunc(rideHandlers.CreateRide))))
	mux.Handle("GET /rides/", authMW(http.HandlerFunc(rideHandlers.GetRide)))
	mux.HandleFunc("GET /spots", rideHandlers.ListSpots)

	mux.Handle("POST /payments/checkout", authMW(http.HandlerFunc(paymentHandlers.CreateCheckout)))

	mux.Handle("POST /drivers/location", authMW(driverOnly(http.HandlerFunc(locationHandlers.UpdateLocation))))
	mux.Handle("GET /locations/nearby", authMW(http.HandlerFunc(locationHandlers.FindNearby)))
	mux.Handle("GET /locations/live", authMW(http.HandlerFunc(locationHandlers.LiveFeed)))

	mux.Handle("GET /loyalty/balance", authMW(http.HandlerFunc(loyaltyHandlers.GetBalance)))
	mux.Handle("GET /admin/stats", authMW(adminOnly(http.HandlerFunc(statsHandlers.GetStats))))

	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain: RequestID -> Tracing -> Logging -> HTTPMetrics.
	handler := middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(metrics)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}

	logger.Info("server stopped")
}
