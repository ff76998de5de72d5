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

	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/migrate"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
	"github.com/crispyspin/crispyspin-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadForOutbox()
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
		logg.Debug(ctx, "relay.dotenv.skipped")
	}

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "relay.stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "relay.shutdown")
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

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer psClient.Close()

	registry := prometheus.NewRegistry()
	relay, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     psClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Metrics:    metrics.NewRelayMetrics(registry),
	})
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.Outbox.MetricsAddr, registry, logg)
	logg.Info(ctx, "relay.starting")
	return relay.Run(ctx)
}
