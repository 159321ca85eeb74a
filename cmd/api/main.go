package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teamnishkar/nishkar-backend/api/controllers"
	"github.com/teamnishkar/nishkar-backend/api/routes"
	"github.com/teamnishkar/nishkar-backend/internal/address"
	"github.com/teamnishkar/nishkar-backend/internal/cart"
	checkoutsvc "github.com/teamnishkar/nishkar-backend/internal/checkout"
	"github.com/teamnishkar/nishkar-backend/internal/coupons"
	orderssvc "github.com/teamnishkar/nishkar-backend/internal/orders"
	"github.com/teamnishkar/nishkar-backend/internal/payments"
	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/db"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/metrics"
	"github.com/teamnishkar/nishkar-backend/pkg/migrate"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/redis"
	"github.com/teamnishkar/nishkar-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	cartReader := cart.NewReader(gormDB)
	addressRepo := address.NewRepository(gormDB)
	couponsRepo := coupons.NewRepository(gormDB)
	ordersRepo := orderssvc.NewRepository(gormDB)
	pendingRepo := checkoutsvc.NewPendingCheckoutRepository(gormDB)

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Config:            cfg.Checkout,
		TransactionRunner: dbClient,
		CartReader:        cartReader,
		Addresses:         addressRepo,
		Coupons:           couponsRepo,
		OrdersRepo:        ordersRepo,
		Pending:           pendingRepo,
		Stripe:            checkoutsvc.NewStripeClient(stripeClient),
		Outbox:            outboxService,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orderssvc.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Config:            cfg.Checkout,
		TransactionRunner: dbClient,
		CartReader:        cartReader,
		Addresses:         addressRepo,
		Coupons:           couponsRepo,
		OrdersRepo:        ordersRepo,
		Pending:           pendingRepo,
		Outbox:            outboxService,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			redisClient,
			checkoutService,
			ordersService,
			paymentsService,
			stripeClient,
			webhookGuard,
			webhookMetrics,
			metricsHandler,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
