package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amaiabotanic/storefront/api/controllers"
	"github.com/amaiabotanic/storefront/api/middleware"
	"github.com/amaiabotanic/storefront/internal/cart"
	"github.com/amaiabotanic/storefront/internal/catalog"
	"github.com/amaiabotanic/storefront/internal/checkout"
	"github.com/amaiabotanic/storefront/internal/notifications"
	"github.com/amaiabotanic/storefront/pkg/config"
	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/amaiabotanic/storefront/pkg/redis"
)

func passthrough(next http.Handler) http.Handler { return next }

// NewRouter wires the storefront API. redisClient and gatherer may be nil;
// without Redis, idempotent replay and checkout rate limiting are off.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	catalogClient *catalog.CachedClient,
	sessions *cart.Sessions,
	feeds *notifications.Feeds,
	registry *checkout.Registry,
	shipping checkout.ShippingPolicy,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idempotency := passthrough
	checkoutLimit := passthrough
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, logg)
		checkoutLimit = middleware.RateLimit(
			middleware.NewRateLimitPolicy("checkout", cfg.Checkout.RateLimitWindow, cfg.Checkout.RateLimitMax),
			redisClient,
			logg,
		)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", controllers.SessionCreate(cfg.Session, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalogClient, logg))
			r.Post("/invalidate", controllers.ProductInvalidate(catalogClient, logg))
			r.Get("/{handle}", controllers.ProductDetail(catalogClient, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(cfg.Session, logg))
			r.Use(idempotency)

			r.Delete("/session", controllers.SessionEnd(sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(sessions, shipping, logg))
				r.Delete("/", controllers.CartClear(sessions, shipping, logg))
				r.Post("/items", controllers.CartAddItem(sessions, catalogClient, feeds, shipping, logg))
				r.Patch("/items/{variantId}", controllers.CartUpdateItem(sessions, shipping, logg))
				r.Delete("/items/{variantId}", controllers.CartRemoveItem(sessions, shipping, logg))
				r.Post("/checkout", controllers.CartProceed(sessions, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutStatus(sessions, registry, logg))
				r.With(checkoutLimit).Post("/", controllers.CheckoutSubmit(sessions, registry, logg))
			})

			r.Get("/notifications", controllers.NotificationsDrain(feeds, logg))
		})
	})

	return r
}
