package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/marcvidal/eventstock-backend/api/routes"
	"github.com/marcvidal/eventstock-backend/internal/allocation"
	"github.com/marcvidal/eventstock-backend/internal/availability"
	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/config"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
	"github.com/marcvidal/eventstock-backend/pkg/migrate"
	"github.com/marcvidal/eventstock-backend/pkg/redis"
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

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(dbClient, catalog.NewRepository(dbClient.DB()), ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	registryService, err := registry.NewService(dbClient, registry.NewRepository(dbClient.DB()), ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create instance registry service", err)
		os.Exit(1)
	}

	availabilityCalc, err := availability.NewCalculator(availability.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create availability calculator", err)
		os.Exit(1)
	}

	allocationEngine, err := allocation.NewEngine(dbClient, allocation.NewRepository(dbClient.DB()), availabilityCalc, ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation engine", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			registryService,
			ledgerService,
			availabilityCalc,
			allocationEngine,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
