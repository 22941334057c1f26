package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osandoval-dev/storefront-backend/api/routes"
	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/internal/products"
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

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	quoter, err := orders.NewFlatQuoter(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to parse pricing config", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	couponsRepo := coupons.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	txnsRepo := ledger.NewRepository(dbClient.DB())
	reviewsRepo := settlement.NewReviewRepository(dbClient.DB())

	couponService := coupons.NewService(couponsRepo, logg)
	productService := products.NewService(productsRepo, logg)
	orderService := orders.NewService(
		dbClient, ordersRepo, productsRepo, txnsRepo,
		couponService, quoter, gatewayClient, logg,
	)
	ledgerService := ledger.NewService(dbClient, txnsRepo, logg)
	reviewService := settlement.NewReviewService(reviewsRepo, logg)

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	reconciler := settlement.NewReconciler(
		dbClient, txnsRepo, ordersRepo, couponsRepo, reviewsRepo,
		logg, settlementMetrics,
	)

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
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Products:   productService,
			Coupons:    couponService,
			Orders:     orderService,
			Ledger:     ledgerService,
			Reviews:    reviewService,
			Reconciler: reconciler,
			Gateway:    gatewayClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
