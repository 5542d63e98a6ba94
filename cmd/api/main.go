package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ohyerin/magpress-backend/api/routes"
	"github.com/ohyerin/magpress-backend/internal/ledger"
	"github.com/ohyerin/magpress-backend/internal/magazines"
	"github.com/ohyerin/magpress-backend/internal/payments"
	"github.com/ohyerin/magpress-backend/internal/subscriptions"
	webhooksvc "github.com/ohyerin/magpress-backend/internal/webhooks/portone"
	"github.com/ohyerin/magpress-backend/pkg/config"
	"github.com/ohyerin/magpress-backend/pkg/db"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	"github.com/ohyerin/magpress-backend/pkg/metrics"
	"github.com/ohyerin/magpress-backend/pkg/migrate"
	"github.com/ohyerin/magpress-backend/pkg/portone"
	"github.com/ohyerin/magpress-backend/pkg/redis"
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

	portoneClient, err := portone.NewClient(context.Background(), cfg.PortOne, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create portone client", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Ledger: ledgerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	webhookService, err := webhooksvc.NewService(webhooksvc.ServiceParams{
		Transactor: dbClient,
		Ledger:     ledgerService,
		Gateway:    portoneClient,
		Dedup:      redisClient,
		Billing:    cfg.Billing,
		Metrics:    metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:  portoneClient,
		Ledger:   ledgerService,
		Currency: cfg.Billing.Currency,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	magazineService, err := magazines.NewService(magazines.ServiceParams{
		Repo:          magazines.NewRepository(dbClient.DB()),
		Subscriptions: subscriptionService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create magazine service", err)
		os.Exit(1)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Webhooks:      webhookService,
			Payments:      paymentService,
			Subscriptions: subscriptionService,
			Magazines:     magazineService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
