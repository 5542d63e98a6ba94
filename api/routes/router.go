package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ohyerin/magpress-backend/api/controllers"
	webhookcontrollers "github.com/ohyerin/magpress-backend/api/controllers/webhooks"
	"github.com/ohyerin/magpress-backend/api/middleware"
	"github.com/ohyerin/magpress-backend/internal/magazines"
	"github.com/ohyerin/magpress-backend/internal/payments"
	"github.com/ohyerin/magpress-backend/internal/subscriptions"
	webhooksvc "github.com/ohyerin/magpress-backend/internal/webhooks/portone"
	"github.com/ohyerin/magpress-backend/pkg/config"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	"github.com/ohyerin/magpress-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   redis.IdempotencyStore
	Webhooks      webhooksvc.Service
	Payments      payments.Service
	Subscriptions subscriptions.Service
	Magazines     magazines.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/portone", webhookcontrollers.PortOneWebhook(deps.Webhooks, logg))
		})

		r.Route("/magazines", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/", controllers.MagazineList(deps.Magazines, logg))
			r.Get("/{magazineId}", controllers.MagazineDetail(deps.Magazines, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Post("/", controllers.MagazineCreate(deps.Magazines, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Get("/ping", controllers.PrivatePing())
			r.Get("/subscription", controllers.SubscriptionStatus(deps.Subscriptions, logg))
			r.Post("/payments", controllers.PaymentCreate(deps.Payments, logg))
			r.Post("/payments/cancel", controllers.PaymentCancel(deps.Payments, logg))
		})
	})

	return r
}
