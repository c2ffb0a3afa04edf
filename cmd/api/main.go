package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sendgrid/sendgrid-go"
	"github.com/slack-go/slack"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/webhooks"
	squarewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/payments"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/square"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const webhookEventTTL = 72 * time.Hour

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
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	gateway, deps, err := paymentGateway(ctx, cfg, logg)
	if err != nil {
		return err
	}

	dispatcher, err := orderNotifier(cfg, storefrontMetrics, logg)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}
	productService, err := product.NewService(product.NewRepository(conn))
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartRepo, dbClient)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Config:    checkout.NewConfig(cfg.Payments),
		DB:        dbClient,
		Users:     userRepo,
		CartRepo:  cartRepo,
		OrderRepo: orderRepo,
		Gateway:   gateway,
		Notifier:  dispatcher,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	paymentEvents, err := orders.NewPaymentEvents(orderRepo, dbClient, logg)
	if err != nil {
		return err
	}

	routerDeps := routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessionManager,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:     authService,
		Register: registerService,
		Products: productService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   ordersService,
	}
	if err := wireWebhooks(&routerDeps, cfg, deps, paymentEvents, redisClient); err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routerDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"payment_provider": gateway.Provider().String(),
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			dispatcher.Wait(shutdownCtx),
		)
	})
	return g.Wait()
}

type gatewayClients struct {
	stripe *stripe.Client
	square *square.Client
}

func paymentGateway(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Gateway, gatewayClients, error) {
	switch cfg.Payments.NormalizedProvider() {
	case config.PaymentProviderSquare:
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, gatewayClients{}, err
		}
		return client, gatewayClients{square: client}, nil
	default:
		client, err := stripe.NewClient(ctx, cfg.Stripe, cfg.Payments, logg)
		if err != nil {
			return nil, gatewayClients{}, err
		}
		return client, gatewayClients{stripe: client}, nil
	}
}

func orderNotifier(cfg *config.Config, rec *metrics.StorefrontMetrics, logg *logger.Logger) (*notifications.AsyncDispatcher, error) {
	ncfg := notifications.NewConfig(cfg)
	params := notifications.DispatcherParams{
		Config:  ncfg,
		Metrics: rec,
		Logger:  logg,
	}
	if ncfg.MailEnabled {
		params.Mail = sendgrid.NewSendClient(cfg.Sendgrid.APIKey)
	}
	if ncfg.ChatEnabled {
		params.Chat = slack.New(cfg.Slack.BotToken)
	}
	inner, err := notifications.NewDispatcher(params)
	if err != nil {
		return nil, err
	}
	return notifications.NewAsyncDispatcher(inner, ncfg.SendTimeout, logg), nil
}

func wireWebhooks(d *routes.Deps, cfg *config.Config, clients gatewayClients, events *orders.PaymentEvents, store *redis.Client) error {
	if clients.stripe != nil && clients.stripe.SigningSecret() != "" {
		svc, err := stripewebhook.NewService(events)
		if err != nil {
			return err
		}
		guard, err := webhooks.NewIdempotencyGuard(store, config.PaymentProviderStripe, webhookEventTTL)
		if err != nil {
			return err
		}
		d.StripeWebhook = &routes.StripeWebhook{Service: svc, Verifier: clients.stripe, Guard: guard}
	}
	if clients.square != nil && cfg.Square.WebhookSignatureKey != "" && cfg.Square.WebhookURL != "" {
		svc, err := squarewebhook.NewService(events)
		if err != nil {
			return err
		}
		guard, err := webhooks.NewIdempotencyGuard(store, config.PaymentProviderSquare, webhookEventTTL)
		if err != nil {
			return err
		}
		d.SquareWebhook = &routes.SquareWebhook{Service: svc, Verifier: clients.square, Guard: guard}
	}
	return nil
}
