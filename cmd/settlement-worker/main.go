package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/internal/settlement"
	"github.com/osandoval-dev/storefront-backend/pkg/config"
	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/gateway"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/metrics"
	"github.com/osandoval-dev/storefront-backend/pkg/migrate"
	"github.com/osandoval-dev/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
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

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	txnsRepo := ledger.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	couponsRepo := coupons.NewRepository(dbClient.DB())
	reviewsRepo := settlement.NewReviewRepository(dbClient.DB())

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	reconciler := settlement.NewReconciler(
		dbClient, txnsRepo, ordersRepo, couponsRepo, reviewsRepo,
		logg, settlementMetrics,
	)

	lock := settlement.NewSweepLock(redisClient, cfg.Settlement.LockTTL)
	poller := settlement.NewPoller(
		txnsRepo, gatewayClient, reconciler, lock,
		cfg.Settlement, logg, settlementMetrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Settlement.PollInterval.String(),
	})
	logg.Info(ctx, "starting settlement worker")

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}
