package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tapify/tapify-backend/api/controllers"
	"github.com/tapify/tapify-backend/api/middleware"
	"github.com/tapify/tapify-backend/internal/commission"
	"github.com/tapify/tapify-backend/internal/payouts"
	"github.com/tapify/tapify-backend/pkg/auth/session"
	"github.com/tapify/tapify-backend/pkg/config"
	"github.com/tapify/tapify-backend/pkg/db"
	"github.com/tapify/tapify-backend/pkg/enums"
	"github.com/tapify/tapify-backend/pkg/logger"
	pkgredis "github.com/tapify/tapify-backend/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	sessions session.AccessSessionChecker,
	metricsHandler http.Handler,
	payoutService payouts.Service,
	commissionService commission.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	triggerPolicy := middleware.NewRateLimitPolicy(
		"payout_trigger",
		cfg.Payouts.TriggerRateLimit,
		cfg.Payouts.TriggerRateWindow,
	)
	idempotencyTTLs := middleware.IdempotencyTTLs{
		Payouts:    cfg.Payouts.IdempotencyKeyTTL,
		Commission: cfg.Payouts.CommissionUpdateTTL,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}, logg))
	})

	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, idempotencyTTLs, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/retailers", controllers.PayoutLedger(payoutService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(triggerPolicy, redisClient, logg))
				r.Post("/trigger", controllers.TriggerPayout(payoutService, logg))
				r.Post("/trigger-batch", controllers.TriggerPayoutBatch(payoutService, logg))
			})
		})

		r.With(middleware.RateLimit(triggerPolicy, redisClient, logg)).
			Post("/retailers/{retailerId}/payouts/pay-all", controllers.PayAllForRetailer(payoutService, logg))

		r.Route("/vendors", func(r chi.Router) {
			r.Post("/commission", controllers.UpdateVendorCommission(commissionService, logg))
			r.Get("/{vendorId}/commission", controllers.VendorCommission(commissionService, logg))
		})
	})

	return r
}
