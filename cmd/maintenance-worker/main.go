package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/internal/cron"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/config"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
	"github.com/marcvidal/eventstock-backend/pkg/metrics"
	"github.com/marcvidal/eventstock-backend/pkg/migrate"
	"github.com/marcvidal/eventstock-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "maintenance-worker"

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
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

	maintenanceJob, err := cron.NewMaintenanceDueJob(cron.MaintenanceDueJobParams{
		Logger:   logg,
		Registry: registryService,
		Lead:     cfg.Sweep.MaintenanceLead,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance due job", err)
		os.Exit(1)
	}

	criticalJob, err := cron.NewCriticalStockJob(cron.CriticalStockJobParams{
		Logger:  logg,
		Catalog: catalogService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create critical stock job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redis.LockKey("maintenance-worker", cfg.App.Env), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(maintenanceJob, criticalJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting maintenance worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "maintenance worker shutting down gracefully")
}
