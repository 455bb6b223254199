package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/amorize/checkout-backend/api/routes"
	"github.com/amorize/checkout-backend/internal/access"
	"github.com/amorize/checkout-backend/internal/audit"
	"github.com/amorize/checkout-backend/internal/catalog"
	checkoutsvc "github.com/amorize/checkout-backend/internal/checkout"
	"github.com/amorize/checkout-backend/internal/orders"
	"github.com/amorize/checkout-backend/internal/payments"
	"github.com/amorize/checkout-backend/internal/provisioning"
	asaaswebhook "github.com/amorize/checkout-backend/internal/webhooks/asaas"
	"github.com/amorize/checkout-backend/pkg/asaas"
	"github.com/amorize/checkout-backend/pkg/config"
	"github.com/amorize/checkout-backend/pkg/db"
	"github.com/amorize/checkout-backend/pkg/logger"
	"github.com/amorize/checkout-backend/pkg/migrate"
	"github.com/amorize/checkout-backend/pkg/redis"
)

const auditQueueSize = 256

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

	auditWriter, err := audit.NewWriter(audit.NewRepository(dbClient.DB()), logg, auditQueueSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit writer", err)
		os.Exit(1)
	}
	defer auditWriter.Close()

	auditService, err := audit.NewService(auditWriter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	asaasClient, err := asaas.NewClient(context.Background(), cfg.Asaas, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create asaas client", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	provisioningService, err := provisioning.NewService(provisioning.NewServiceParams{
		Repo:     provisioning.NewRepository(dbClient.DB()),
		Password: cfg.Password,
		Logger:   logg,
		UniqueViolation: func(err error) bool {
			return db.IsUniqueViolation(err, "")
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioning service", err)
		os.Exit(1)
	}

	var expander access.KitExpander = access.NoopExpander{}
	if cfg.FeatureFlags.ExpandKits {
		expander, err = access.NewCatalogExpander(dbClient.DB())
		if err != nil {
			logg.Error(context.Background(), "failed to create kit expander", err)
			os.Exit(1)
		}
	}
	accessService, err := access.NewService(access.NewRepository(dbClient.DB()), expander, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create access service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(asaasClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.NewServiceParams{
		Orders:        ordersService,
		Provisioning:  provisioningService,
		Access:        accessService,
		Payments:      paymentsService,
		Gateway:       asaasClient,
		Audit:         auditService,
		Logger:        logg,
		EmailCache:    redisClient,
		EmailCacheTTL: cfg.Checkout.EmailCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	webhookGuard, err := asaaswebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookEventTTL, "asaas-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := asaaswebhook.NewService(asaaswebhook.ServiceParams{
		Confirmer: checkoutService,
		Guard:     webhookGuard,
		Audit:     auditService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
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
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Catalog:     catalogService,
			Checkout:    checkoutService,
			Payments:    paymentsService,
			Orders:      ordersService,
			Webhook:     webhookService,
			DBPinger:    dbClient,
			RedisPinger: redisClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
