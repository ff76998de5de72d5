package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crispyspin/crispyspin-backend/api/controllers"
	"github.com/crispyspin/crispyspin-backend/api/middleware"
	"github.com/crispyspin/crispyspin-backend/internal/auth"
	"github.com/crispyspin/crispyspin-backend/internal/ledger"
	"github.com/crispyspin/crispyspin-backend/internal/payments"
	"github.com/crispyspin/crispyspin-backend/internal/spins"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	spinService spins.Service,
	ledgerService ledger.Service,
	paymentService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.AccessLog(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	challengePolicy := middleware.NewThrottle(
		"challenge",
		cfg.AuthRateLimit.ChallengeWindow,
		cfg.AuthRateLimit.ChallengeIPLimit,
		cfg.AuthRateLimit.ChallengeWalletLimit,
	)
	loginPolicy := middleware.NewThrottle(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginWalletLimit,
	)

	readiness := map[string]db.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.Ping())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(rateLimit(challengePolicy, redisClient, logg)).Get("/nonce", controllers.AuthNonce(authService, logg))
		r.With(rateLimit(loginPolicy, redisClient, logg)).Post("/verify", controllers.AuthVerify(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/ping", controllers.Whoami())

		r.Post("/spin", controllers.SpinIssue(spinService, logg))
		r.Get("/spin/eligibility", controllers.SpinEligibility(spinService, logg))
		r.Get("/spin/history", controllers.SpinHistory(spinService, logg))

		r.Get("/ledger", controllers.LedgerBalance(ledgerService, logg))
		r.Get("/orders", controllers.OrdersList(ledgerService, logg))

		r.Get("/market/skus", controllers.MarketSKUs())
		r.Post("/market/verify", controllers.MarketVerify(paymentService, logg))
	})

	return r
}

func rateLimit(policy middleware.Throttle, redisClient *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if redisClient == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Throttled(policy, redisClient, logg)
}
