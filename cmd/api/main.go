package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nochance19900208-source/Real-Estate/api/controllers"
	"github.com/nochance19900208-source/Real-Estate/api/routes"
	authsvc "github.com/nochance19900208-source/Real-Estate/internal/auth"
	"github.com/nochance19900208-source/Real-Estate/internal/favorites"
	"github.com/nochance19900208-source/Real-Estate/internal/listings"
	"github.com/nochance19900208-source/Real-Estate/internal/subscriptions"
	"github.com/nochance19900208-source/Real-Estate/internal/users"
	stripewebhook "github.com/nochance19900208-source/Real-Estate/internal/webhooks/stripe"
	"github.com/nochance19900208-source/Real-Estate/pkg/config"
	"github.com/nochance19900208-source/Real-Estate/pkg/env"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	"github.com/nochance19900208-source/Real-Estate/pkg/metrics"
	pkgmongo "github.com/nochance19900208-source/Real-Estate/pkg/mongo"
	"github.com/nochance19900208-source/Real-Estate/pkg/ratelimit"
	pkgredis "github.com/nochance19900208-source/Real-Estate/pkg/redis"
	pkgstripe "github.com/nochance19900208-source/Real-Estate/pkg/stripe"
)

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	mongoClient, err := pkgmongo.New(context.Background(), cfg.Mongo)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mongo", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing mongo", err)
		}
	}()

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, webhook replay protection disabled")
	}

	stripeClient, err := pkgstripe.NewClient(cfg.Stripe)
	if err != nil {
		logg.Error(context.Background(), "failed to configure stripe", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(mongoClient.UserDB())
	subscriptionRepo := subscriptions.NewRepository(mongoClient.UserDB())
	favoriteRepo := favorites.NewRepository(mongoClient.UserDB())
	listingStore := listings.NewMongoStore(mongoClient.CrawlerDB())

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Store:     subscriptionRepo,
		Stripe:    subscriptions.NewStripeAPI(),
		ProductID: cfg.Stripe.ProductID,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Users:         userRepo,
		Subscriptions: subscriptionService,
		JWT:           cfg.JWT,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		Store:  listingStore,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	favoriteService, err := favorites.NewService(favorites.ServiceParams{
		Store:    favoriteRepo,
		Listings: listingService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create favorite service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Subscriptions: subscriptionRepo,
		Users:         userRepo,
		Stripe:        subscriptions.NewStripeAPI(),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	var webhookGuard *stripewebhook.IdempotencyGuard
	if redisClient != nil {
		webhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Redis.WebhookIdempotencyTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook guard", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			MongoPinger:     mongoClient,
			RedisPinger:     redisPinger(redisClient),
			HTTPMetrics:     metrics.NewHTTPMetrics(registry),
			MetricsGatherer: registry,
			EmailLimiter:    ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max),
			UserLoader:      userRepo,
			AuthService:     authService,
			Listings:        listingService,
			Favorites:       favoriteService,
			Subscriptions:   subscriptionService,
			StripeClient:    stripeClient,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// redisPinger avoids handing the router a typed nil when Redis is disabled.
func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
