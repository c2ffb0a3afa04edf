package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the redis surface used by the HTTP layer.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimitStore
	Ping(ctx context.Context) error
}

// StripeWebhook bundles the pieces behind POST /webhooks/stripe.
type StripeWebhook struct {
	Service  webhookcontrollers.StripeWebhookService
	Verifier webhookcontrollers.StripeVerifier
	Guard    webhookcontrollers.EventGuard
}

// SquareWebhook bundles the pieces behind POST /webhooks/square.
type SquareWebhook struct {
	Service  webhookcontrollers.SquareWebhookService
	Verifier webhookcontrollers.SquareVerifier
	Guard    webhookcontrollers.EventGuard
}

// Deps lists everything the router hands to controllers. Nil webhooks are not mounted.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Metrics  http.Handler

	Auth     auth.Service
	Register auth.RegisterService
	Products product.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service

	StripeWebhook *StripeWebhook
	SquareWebhook *SquareWebhook
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, map[string]controllers.Pinger{
			"database": d.DB,
			"redis":    d.Redis,
		}, logg))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	if wh := d.StripeWebhook; wh != nil {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(wh.Service, wh.Verifier, wh.Guard, logg))
	}
	if wh := d.SquareWebhook; wh != nil {
		r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(wh.Service, wh.Verifier, wh.Guard, logg))
	}

	r.Get("/products", controllers.ProductList(d.Products, logg))
	r.Get("/products/{productID}", controllers.ProductDetail(d.Products, logg))

	r.With(
		middleware.AuthRateLimit(registerPolicy, d.Redis, logg),
		middleware.Idempotency(d.Redis, logg),
	).Post("/register", controllers.AuthRegister(d.Register, logg))

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	// Routes stay flat inside the group so the idempotency middleware sees the full pattern.
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, d.Sessions, logg),
			middleware.Idempotency(d.Redis, logg),
		)

		r.Get("/user", controllers.UserProfile(d.Auth, logg))

		r.Get("/cart", controllers.CartList(d.Cart, logg))
		r.Post("/cart/add", controllers.CartAdd(d.Cart, logg))
		r.Put("/cart/{itemID}", controllers.CartUpdate(d.Cart, logg))
		r.Delete("/cart/{itemID}", controllers.CartRemove(d.Cart, logg))

		r.Get("/orders", controllers.OrderList(d.Orders, logg))
		r.Post("/orders/create", controllers.OrderCreate(d.Checkout, logg))
	})

	return r
}
