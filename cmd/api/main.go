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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/shipments"
	razorpaywebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":                 cfg.App.Env,
		"addr":                addr,
		"razorpay_configured": cfg.Razorpay.Configured(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, svcs, promhttp.Handler(),
			controllers.Dependency{Name: "database", Pinger: dbClient},
			controllers.Dependency{Name: "redis", Pinger: redisClient},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	reg prometheus.Registerer,
) (routes.Services, error) {
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cartRepo := cart.NewRepository(dbClient.DB())
	cartSvc, err := cart.NewService(cartRepo, catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return routes.Services{}, err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	shipmentsSvc, err := shipments.NewService(shipments.ServiceParams{
		DB:       dbClient,
		Repo:     shipments.NewRepository(dbClient.DB()),
		Orders:   ordersSvc,
		Outbox:   outboxSvc,
		Shipping: cfg.Shipping,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc.OnPaid(shipmentsSvc.EnsureForOrder)

	checkoutSvc, err := checkout.NewService(dbClient, cartRepo, ordersRepo, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	var gateway payments.Gateway
	if cfg.Razorpay.Configured() {
		client, err := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret,
			razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
			razorpay.WithTimeout(cfg.Razorpay.Timeout),
			razorpay.WithMetrics(metrics.NewGatewayMetrics(reg)),
		)
		if err != nil {
			return routes.Services{}, err
		}
		logg.Info(logg.WithField(context.Background(), "razorpay_mode", client.Mode()), "razorpay client initialized")
		gateway = client
	} else {
		logg.Warn(context.Background(), "razorpay credentials missing; payment creation disabled")
	}

	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:    paymentsRepo,
		Orders:  ordersSvc,
		Gateway: gateway,
		KeyID:   cfg.Razorpay.KeyID,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	guard, err := razorpaywebhook.NewIdempotencyGuard(redisClient, razorpaywebhook.DefaultGuardTTL, razorpaywebhook.GuardScope)
	if err != nil {
		return routes.Services{}, err
	}
	webhookSvc, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		TransactionRunner: dbClient,
		Payments:          paymentsRepo,
		OrdersRepo:        ordersRepo,
		Orders:            ordersSvc,
		Outbox:            outboxSvc,
		Guard:             guard,
		Metrics:           metrics.NewWebhookMetrics(reg),
		Logger:            logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
		Tracking: shipmentsSvc,
		Payments: paymentsSvc,
		Webhooks: webhookSvc,
	}, nil
}
