package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store backs response replay and per-client throttling.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services groups the handlers' collaborators. Nil entries answer with an
// error instead of panicking.
type Services struct {
	Cart     cartcontrollers.Service
	Checkout ordercontrollers.Checkouter
	Orders   ordercontrollers.Reader
	Tracking ordercontrollers.Tracker
	Payments paymentcontrollers.Creator
	Webhooks webhookcontrollers.RazorpayWebhookService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store Store,
	svcs Services,
	metricsHandler http.Handler,
	readiness ...controllers.Dependency,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit)
	paymentPolicy := middleware.NewRateLimitPolicy("payment", cfg.RateLimit.Window, cfg.RateLimit.PaymentLimit)
	// A Redis outage must not turn gateway deliveries into 503s.
	webhookPolicy := middleware.NewRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookLimit).FailOpen()

	var (
		idempotency func(http.Handler) http.Handler
		rateLimiter func(middleware.RateLimitPolicy) func(http.Handler) http.Handler
	)
	if store != nil {
		idempotency = middleware.Idempotency(store, logg)
		rateLimiter = func(p middleware.RateLimitPolicy) func(http.Handler) http.Handler {
			return middleware.RateLimit(p, store, logg)
		}
	} else {
		idempotency = passthrough
		rateLimiter = func(middleware.RateLimitPolicy) func(http.Handler) http.Handler { return passthrough }
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, readiness...))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Gateway callbacks carry no shopper identity.
	handle(r.With(rateLimiter(webhookPolicy)), http.MethodPost, "/orders/razorpay/webhook/",
		webhookcontrollers.RazorpayWebhook(svcs.Webhooks, cfg.Razorpay.WebhookSecret, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.CartSession(logg))

		handle(r, http.MethodGet, "/cart/", cartcontrollers.CartFetch(svcs.Cart, logg))
		handle(r, http.MethodPost, "/cart/items/", cartcontrollers.CartAddItem(svcs.Cart, logg))
		handle(r, http.MethodPatch, "/cart/items/{itemId}/", cartcontrollers.CartUpdateItem(svcs.Cart, logg))
		handle(r, http.MethodDelete, "/cart/items/{itemId}/", cartcontrollers.CartRemoveItem(svcs.Cart, logg))

		handle(r.With(rateLimiter(checkoutPolicy), idempotency), http.MethodPost, "/orders/checkout/",
			ordercontrollers.Checkout(svcs.Checkout, logg))
		handle(r.With(rateLimiter(paymentPolicy), idempotency), http.MethodPost, "/orders/razorpay/create/",
			paymentcontrollers.CreateRazorpayOrder(svcs.Payments, logg))

		handle(r, http.MethodGet, "/orders/", ordercontrollers.List(svcs.Orders, logg))
		handle(r, http.MethodGet, "/orders/shipping/estimate/", ordercontrollers.ShippingEstimate(svcs.Tracking, logg))
		handle(r, http.MethodGet, "/orders/{orderId}/", ordercontrollers.Detail(svcs.Orders, logg))
		handle(r, http.MethodGet, "/orders/{orderId}/tracking/", ordercontrollers.Tracking(svcs.Tracking, logg))
	})

	return r
}

// handle registers pattern with and without its trailing slash.
func handle(r chi.Router, method, pattern string, h http.Handler) {
	r.Method(method, pattern, h)
	if trimmed := strings.TrimSuffix(pattern, "/"); trimmed != "" && trimmed != pattern {
		r.Method(method, trimmed, h)
	}
}

func passthrough(next http.Handler) http.Handler {
	return next
}
