// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-marketplace/internal/config"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/infra/adapters/catalog"
	payAdapters "content-marketplace/internal/infra/adapters/payment"
	"content-marketplace/internal/infra/db"
	pg "content-marketplace/internal/infra/db/postgres"
	"content-marketplace/internal/infra/logging"
	"content-marketplace/internal/infra/messaging"
	"content-marketplace/internal/infra/metrics"
	red "content-marketplace/internal/infra/redis"
	"content-marketplace/internal/infra/scheduler"
	"content-marketplace/internal/infra/web"
	"content-marketplace/internal/infra/worker"
	"content-marketplace/internal/usecase"
)

// set by -ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (memory store, noop payments)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis (optional) ----
	var redisClient red.RedisClient
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		redisClient = rc
	}

	// ---- Purchase store ----
	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("purchase store")
	}
	defer store.Close()

	sched := scheduler.New(logger)
	if store.Pool != nil {
		sched.Every("db-pool-stats", 15*time.Second, func(context.Context) error {
			pg.RecordPoolStats(store.Pool)
			return nil
		})
	}
	purchases := store.Purchases
	if redisClient != nil {
		purchases = red.NewPurchaseRepoCacheDecorator(purchases, redisClient, cfg.Redis.TTL, logger)
	}

	// ---- Content catalog ----
	var contentCatalog adapter.ContentCatalog = catalog.NewGitHubCatalog(cfg.Catalog)
	if redisClient != nil {
		contentCatalog = red.NewCatalogCacheDecorator(contentCatalog, redisClient, cfg.Catalog.CacheTTL, logger)
		sched.Every("catalog-warm", cfg.Catalog.WarmInterval, func(ctx context.Context) error {
			return red.WarmCatalog(ctx, contentCatalog)
		})
	}

	// ---- Payment gateway ----
	var (
		gateway adapter.PaymentGateway
		devPay  web.DevPaymentCompleter
	)
	switch cfg.Payment.Provider {
	case "stripe":
		gateway, err = payAdapters.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret, cfg.Server.BaseURL, cfg.Payment.Stripe.Currency)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
	default:
		noop := payAdapters.NewNoopPaymentGateway(cfg.Payment.Noop.WebhookSecret, cfg.Server.BaseURL)
		gateway, devPay = noop, noop
	}
	logger.Info().Str("provider", gateway.Name()).Msg("payment gateway ready")

	// ---- Events (optional) ----
	var publisher adapter.PurchaseEventPublisher
	if cfg.Messaging.AMQPURL != "" {
		rp, err := messaging.NewRabbitPublisher(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq")
		}
		defer rp.Close()
		pool := worker.NewPool(cfg.Messaging.Workers, logger)
		pool.Start(ctx)
		defer pool.Stop()
		publisher = messaging.NewAsyncPurchaseEventPublisher(messaging.NewPurchaseEventPublisher(rp), pool, cfg.Messaging.PublishTimeout, logger)
	}

	sched.Start(ctx)
	defer sched.Stop()

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(purchases, contentCatalog, gateway, cfg.Server.BaseURL, logger)
	eventsUC := usecase.NewPaymentEventUseCase(purchases, gateway, publisher, logger, cfg.Runtime.Dev)
	accessUC := usecase.NewAccessUseCase(purchases, cfg.Server.BaseURL, logger)
	libraryUC := usecase.NewLibraryUseCase(purchases, logger)

	// ---- HTTP ----
	deps := web.Deps{
		Checkout: checkoutUC,
		Events:   eventsUC,
		Access:   accessUC,
		Library:  libraryUC,
		Catalog:  contentCatalog,
		Auth:     web.NewAuthManager(cfg.Auth.SessionSecret, cfg.Server.CookieSecure, "", cfg.Auth.SessionTTL),
		OAuth:    web.NewGitHubOAuth(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Server.BaseURL, cfg.Server.CookieSecure),
		DevPay:   devPay,
	}
	if redisClient != nil {
		deps.Limiter = red.NewRateLimiter(redisClient, cfg.Server.CheckoutRateLimit, cfg.Server.CheckoutRateWindow)
	}
	srv := web.NewServer(deps, web.Options{
		BaseURL:            cfg.Server.BaseURL,
		RequestTimeout:     cfg.Server.RequestTimeout,
		CheckoutRateWindow: cfg.Server.CheckoutRateWindow,
		Dev:                cfg.Runtime.Dev,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("base_url", cfg.Server.BaseURL).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
