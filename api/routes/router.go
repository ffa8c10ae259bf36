package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andreivasquez/lumapay-pos/api/controllers"
	"github.com/andreivasquez/lumapay-pos/api/middleware"
	"github.com/andreivasquez/lumapay-pos/internal/credentials"
	"github.com/andreivasquez/lumapay-pos/internal/notify"
	"github.com/andreivasquez/lumapay-pos/internal/offline"
	"github.com/andreivasquez/lumapay-pos/internal/refunds"
	"github.com/andreivasquez/lumapay-pos/internal/session"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/internal/transactions"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Redis        *redis.Client
	Registry     *prometheus.Registry
	ReadyChecks  []controllers.ReadyCheck
	Manager      *session.Manager
	Offline      offline.Service
	Credentials  credentials.Service
	Transactions transactions.Service
	Refunds      refunds.Service
	Settings     settings.Service
	Notifier     *notify.Dispatcher
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var limiterStore middleware.RateLimiterStore
	if deps.Redis != nil {
		limiterStore = deps.Redis
	}

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
	)
	sessionPolicy := middleware.NewRateLimitPolicy(
		"session",
		cfg.RateLimit.SessionWindow,
		cfg.RateLimit.SessionIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadyChecks...))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, limiterStore, logg)).
			Post("/login", controllers.TerminalLogin(cfg, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/pos", func(r chi.Router) {
			r.With(middleware.RateLimit(sessionPolicy, limiterStore, logg)).
				Post("/sessions", controllers.CreateSession(deps.Manager, logg))
			r.Get("/state", controllers.PosState(deps.Manager, logg))
			r.Post("/acknowledge", controllers.AcknowledgeOutcome(deps.Manager, logg))
		})

		r.Route("/offline-queue", func(r chi.Router) {
			r.Get("/", controllers.OfflineQueueList(deps.Offline, logg))
			r.Post("/sync", controllers.OfflineSync(deps.Offline, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(deps.Transactions, logg))
			r.Post("/{transactionId}/refunds", controllers.RefundTransaction(deps.Refunds, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetSettings(deps.Settings, logg))
			r.Put("/", controllers.PutSettings(deps.Settings, logg))
		})

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", controllers.GetCredentialState(deps.Credentials, logg))
			r.Put("/", controllers.PutCredential(deps.Credentials, logg))
		})

		r.Get("/notifications", controllers.RecentNotifications(deps.Notifier, logg))
	})

	return r
}
