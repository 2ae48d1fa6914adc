package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nochance19900208-source/Real-Estate/api/controllers"
	webhookcontrollers "github.com/nochance19900208-source/Real-Estate/api/controllers/webhooks"
	"github.com/nochance19900208-source/Real-Estate/api/middleware"
	authsvc "github.com/nochance19900208-source/Real-Estate/internal/auth"
	"github.com/nochance19900208-source/Real-Estate/internal/favorites"
	"github.com/nochance19900208-source/Real-Estate/internal/listings"
	subscriptionsvc "github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	stripewebhook "github.com/nochance19900208-source/Real-Estate/internal/webhooks/stripe"
	"github.com/nochance19900208-source/Real-Estate/pkg/config"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	"github.com/nochance19900208-source/Real-Estate/pkg/metrics"
	"github.com/nochance19900208-source/Real-Estate/pkg/ratelimit"
	"github.com/nochance19900208-source/Real-Estate/pkg/stripe"
)

type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	MongoPinger     controllers.Pinger
	RedisPinger     controllers.Pinger
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
	EmailLimiter    *ratelimit.Limiter
	UserLoader      middleware.UserLoader
	AuthService     authsvc.Service
	Listings        listings.Service
	Favorites       favorites.Service
	Subscriptions   subscriptionsvc.Service
	StripeClient    *stripe.Client
	WebhookService  *stripewebhook.Service
	WebhookGuard    *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App, cfg.CORS),
		middleware.Metrics(p.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.MongoPinger, p.RedisPinger))
	})
	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/ping", controllers.PublicPing())

	r.Route("/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(p.EmailLimiter, logg)).Post("/check-email", controllers.CheckEmail(p.AuthService, logg))
		r.Post("/register", controllers.Register(p.AuthService, logg))
		r.Post("/login", controllers.Login(p.AuthService, logg))
		r.Get("/subscription-plan", controllers.SubscriptionPlan())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.UserLoader, logg))
			r.Get("/me", controllers.Me(logg))
			r.Post("/logout", controllers.Logout())
			r.Put("/update-name", controllers.UpdateName(p.AuthService, logg))
			r.Put("/update-password", controllers.UpdatePassword(p.AuthService, logg))
		})
	})

	r.Route("/v1/payments", func(r chi.Router) {
		r.Post("/webhook", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, webhookGuard(p.WebhookGuard), logg))
		r.Get("/config", controllers.PaymentConfig(p.StripeClient))
		r.Get("/plan", controllers.SubscriptionPlan())
		r.Post("/create-subscription", controllers.CreateSubscription(p.AuthService, p.Subscriptions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.UserLoader, logg))
			r.Post("/create-subscription-for-user", controllers.CreateSubscriptionForUser(p.Subscriptions, logg))
			r.Post("/renew-subscription", controllers.RenewSubscription(p.Subscriptions, logg))
			r.Post("/cancel-subscription", controllers.CancelSubscription(p.Subscriptions, logg))
			r.Post("/reactivate-subscription", controllers.ReactivateSubscription(p.Subscriptions, logg))
			r.Get("/subscription", controllers.CurrentSubscription(p.Subscriptions, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.UserLoader, logg))
		r.Get("/v1/ping", controllers.PrivatePing())

		r.Route("/v1/listings", func(r chi.Router) {
			r.Use(middleware.RequireSubscription(p.Subscriptions, logg))
			r.Get("/", controllers.SearchListings(p.Listings, logg))
			r.Get("/{id}", controllers.GetListing(p.Listings, logg))
		})

		r.Route("/v1/favorites", func(r chi.Router) {
			r.Use(middleware.RequireSubscription(p.Subscriptions, logg))
			r.Get("/", controllers.ListFavorites(p.Favorites, logg))
			r.Post("/", controllers.CreateFavorite(p.Favorites, logg))
			r.Delete("/{listingID}", controllers.DeleteFavorite(p.Favorites, logg))
		})
	})

	return r
}

// webhookGuard keeps a typed nil from reaching the controller's interface
// check when Redis is not configured.
func webhookGuard(guard *stripewebhook.IdempotencyGuard) webhookcontrollers.StripeWebhookGuard {
	if guard == nil {
		return nil
	}
	return guard
}
