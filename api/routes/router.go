package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/escrowdesk/api/controllers"
	"github.com/angelmondragon/escrowdesk/api/middleware"
	"github.com/angelmondragon/escrowdesk/pkg/config"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
	pkgredis "github.com/angelmondragon/escrowdesk/pkg/redis"
)

// Deps groups what the router hands to controllers. Journal and the readiness
// pingers may be nil.
type Deps struct {
	Payments    controllers.PaymentService
	Payouts     controllers.PayoutService
	Journal     controllers.JournalLister
	Idempotency pkgredis.IdempotencyStore
	Ready       map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotent := middleware.Idempotency(deps.Idempotency, logg)

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/fees", controllers.PaymentFees(logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(enums.MemberRoleCustomer, logg))
			r.With(idempotent).Post("/", controllers.PaymentSubmit(deps.Payments, logg))
			r.With(idempotent).Post("/paypal/complete", controllers.PayPalComplete(deps.Payments, logg))
			r.Post("/paypal/cancel", controllers.PayPalCancel(deps.Payments, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.AdminPayoutList(deps.Payouts, logg))
			r.With(idempotent).Post("/{payoutId}/{action}", controllers.AdminPayoutAction(deps.Payouts, logg))
		})
		r.Get("/journal", controllers.AdminJournal(deps.Journal, logg))
	})

	return r
}
