package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/calliehq/bramble/internal"
	"github.com/calliehq/bramble/internal/billing"
	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/email"
	"github.com/calliehq/bramble/internal/handler/storefront"
	"github.com/calliehq/bramble/internal/handler/webhook"
	"github.com/calliehq/bramble/internal/middleware"
	"github.com/calliehq/bramble/internal/postgres"
	"github.com/calliehq/bramble/internal/router"
	"github.com/calliehq/bramble/internal/routes"
	"github.com/calliehq/bramble/internal/service"
	"github.com/calliehq/bramble/internal/telemetry"
	"github.com/calliehq/bramble/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize stores
	catalogStore := postgres.NewCatalogStore(pool)
	orderStore := postgres.NewOrderStore(pool)
	sessionStore := postgres.NewSessionStore(pool, cfg.Session.TTL)
	profileStore := postgres.NewProfileStore(pool)

	// Initialize Stripe billing provider
	logger.Info("Initializing Stripe billing provider...")
	stripeConfig := &billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		MaxRetries:    3,
	}
	billingProvider, err := billing.NewStripeProvider(stripeConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}
	logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())

	// Business metrics share the default registry with the HTTP metrics
	// so both are served from /metrics.
	businessMetrics := telemetry.NewMetrics(prometheus.DefaultRegisterer, "bramble")

	// Pricing rules
	pricing, err := pricingFromConfig(cfg.Checkout)
	if err != nil {
		return fmt.Errorf("invalid pricing configuration: %w", err)
	}

	// Order confirmation email (optional)
	var confirmationSender service.ConfirmationSender
	if cfg.Email.Enabled {
		logger.Info("Initializing SMTP sender...", "host", cfg.Email.Host, "port", cfg.Email.Port)
		smtpSender := email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
		if err := smtpSender.TestConnection(ctx); err != nil {
			return fmt.Errorf("SMTP connection test failed: %w", err)
		}
		confirmationSender = email.NewConfirmationMailer(smtpSender, cfg.Email.From, cfg.Email.FromName)
		logger.Info("Order confirmation email enabled")
	} else {
		logger.Info("Order confirmation email disabled")
	}

	// Initialize services
	orderService := service.NewOrderService(orderStore, catalogStore, profileStore, confirmationSender, pricing, businessMetrics, logger)
	bagService := service.NewBagService(sessionStore, catalogStore, businessMetrics, logger)
	checkoutService := service.NewCheckoutService(catalogStore, sessionStore, profileStore, billingProvider, pricing, cfg.Checkout.Currency, businessMetrics, logger)
	reconciler := service.NewReconciler(orderService, sessionStore, billingProvider, service.ReconcileConfig{
		WebhookWaitAttempts: uint64(cfg.Checkout.WebhookWaitAttempts),
		WebhookWaitDelay:    cfg.Checkout.WebhookWaitDelay,
		Fallback:            service.FallbackPolicy(cfg.Checkout.FallbackPolicy),
	}, businessMetrics, logger)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	cookies := cookie.NewConfig(cfg.Session.CookieSecure)
	sessions := storefront.NewSessionManager(sessionStore, cookies, cfg.Session.CookieName, cfg.Session.TTL)

	storefrontDeps := routes.StorefrontDeps{
		BagHandler:      storefront.NewBagHandler(sessions, bagService, checkoutService),
		CheckoutHandler: storefront.NewCheckoutHandler(sessions, checkoutService, profileStore, cookies, cfg.Stripe.PublishableKey),
		PaidHandler:     storefront.NewPaidHandler(sessions, reconciler, cookies),
		OrdersHandler:   storefront.NewOrdersHandler(sessions, orderStore, cookies),
	}

	stripeWebhookHandler := webhook.NewStripeHandler(billingProvider, orderService, cfg.Stripe.WebhookSecret, businessMetrics, logger)
	webhookDeps := routes.WebhookDeps{
		StripeHandler: stripeWebhookHandler.HandleWebhook,
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics("bramble")

	// Configure security headers
	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		// Relax CSP in development for easier debugging
		securityConfig.ContentSecurityPolicy = ""
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	// Configure rate limiting
	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultRateLimiter.Stop()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		metrics.Middleware,
		middleware.WithClientIP(),
		middleware.SecurityHeaders(securityConfig),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		defaultRateLimiter.Middleware,
		router.Logger(logger),
	)

	// Metrics endpoint (no auth required, but should be protected in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Register route groups
	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)

	// Sweep expired sessions in the background for the life of the server.
	sweeper := worker.NewSweeper(sessionStore, worker.SweeperConfig{}, businessMetrics, logger)
	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session sweeper stopped", "error", err)
		}
	}()

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// pricingFromConfig parses the delivery pricing knobs into decimals.
func pricingFromConfig(cfg internal.CheckoutConfig) (checkout.Pricing, error) {
	threshold, err := decimal.NewFromString(cfg.FreeDeliveryThreshold)
	if err != nil {
		return checkout.Pricing{}, fmt.Errorf("FREE_DELIVERY_THRESHOLD: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.DeliveryFlatFee)
	if err != nil {
		return checkout.Pricing{}, fmt.Errorf("DELIVERY_FLAT_FEE: %w", err)
	}
	return checkout.Pricing{
		FreeDeliveryThreshold: threshold,
		DeliveryFlatFee:       fee,
	}, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
