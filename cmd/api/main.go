package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/crispyspin/crispyspin-backend/api/routes"
	"github.com/crispyspin/crispyspin-backend/internal/auth"
	"github.com/crispyspin/crispyspin-backend/internal/claims"
	"github.com/crispyspin/crispyspin-backend/internal/eligibility"
	"github.com/crispyspin/crispyspin-backend/internal/ledger"
	"github.com/crispyspin/crispyspin-backend/internal/payments"
	"github.com/crispyspin/crispyspin-backend/internal/rewards"
	"github.com/crispyspin/crispyspin-backend/internal/spins"
	"github.com/crispyspin/crispyspin-backend/internal/users"
	"github.com/crispyspin/crispyspin-backend/pkg/auth/challenge"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/migrate"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
	"github.com/crispyspin/crispyspin-backend/pkg/redis"
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
		FilePath:    cfg.App.LogFile,
		Format:      cfg.App.LogFormat,
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	signer, err := claims.NewKeySigner(cfg.Signer.PrivateKey)
	if err != nil {
		logg.Error(context.Background(), "failed to load signer key", err)
		os.Exit(1)
	}
	partnerAmount, err := uint256.FromDecimal(strings.TrimSpace(cfg.Signer.PartnerAmountWei))
	if err != nil {
		logg.Error(context.Background(), "invalid partner amount", err)
		os.Exit(1)
	}
	issuer, err := claims.NewIssuer(claims.IssuerParams{
		Signer:         signer,
		MintContract:   cfg.Signer.MintContract,
		ClaimVault:     cfg.Signer.ClaimVault,
		PartnerToken:   cfg.Signer.PartnerToken,
		PartnerAmount:  partnerAmount,
		PartnerTokenID: cfg.Signer.PartnerTokenID,
		ClaimTTL:       cfg.Signer.ClaimTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create claim issuer", err)
		os.Exit(1)
	}

	verifier, closeVerifier, err := payments.DialVerifier(context.Background(), cfg.Chain)
	if err != nil {
		logg.Error(context.Background(), "failed to dial chain rpc", err)
		os.Exit(1)
	}
	defer closeVerifier()

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	spinService, err := spins.NewService(spins.ServiceParams{
		Tx:      dbClient,
		Ledger:  ledgerRepo,
		Gate:    eligibility.NewGate(eligibility.Cooldown),
		Table:   rewards.NewTable(rewards.CryptoSource{}),
		Issuer:  issuer,
		Outbox:  outboxService,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create spin service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:                dbClient,
		Ledger:            ledgerRepo,
		Verifier:          verifier,
		Outbox:            outboxService,
		TreasuryAddress:   cfg.Chain.TreasuryAddress,
		RequirePayerMatch: cfg.Chain.RequirePayerMatch,
		Metrics:           engineMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	challenges, err := challenge.NewStore(redisClient, cfg.Auth.ChallengeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create challenge store", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:   users.NewRepository(dbClient.DB()),
		Challenges: challenges,
		JWTConfig:  cfg.JWT,
		AuthConfig: cfg.Auth,
		ChainID:    cfg.Chain.ChainID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"signer": issuer.SignerAddress(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			metrics.Handler(registry),
			authService,
			spinService,
			ledgerService,
			paymentService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
