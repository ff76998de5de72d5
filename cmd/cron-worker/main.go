package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crispyspin/crispyspin-backend/internal/cron"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/migrate"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
	"github.com/crispyspin/crispyspin-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadForCron()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load config: %v\n", serviceKind, err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		FilePath:    cfg.App.LogFile,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})
	if envErr != nil {
		logg.Debug(ctx, "cron.dotenv.skipped")
	}

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron.stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron.shutdown")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	jobs, err := buildJobs(cfg, logg, dbClient, jobMetrics)
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+lockScope(cfg.App.Env)), 0)
	if err != nil {
		return err
	}
	worker, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.Cron.MetricsAddr, registry, logg)
	logg.Info(logg.WithField(ctx, "jobs", jobs.Len()), "cron.starting")
	return worker.Run(ctx)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, jobMetrics *metrics.JobMetrics) (*cron.Registry, error) {
	params := cron.OutboxJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Metrics:     jobMetrics,
		Retention:   cfg.Cron.OutboxRetention,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	}
	retention, err := cron.NewOutboxRetentionJob(params)
	if err != nil {
		return nil, err
	}
	deadLetters, err := cron.NewDeadLetterMonitorJob(params)
	if err != nil {
		return nil, err
	}

	jobs := cron.NewRegistry()
	jobs.Register(retention, cfg.Cron.RetentionEvery)
	jobs.Register(deadLetters, cfg.Cron.DeadLetterEvery)
	return jobs, nil
}

// lockScope keeps environments sharing one Redis from blocking each other.
func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
