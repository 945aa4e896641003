package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/sellerdesk/sellerdesk-backend/internal/cache"
	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/database"
	"github.com/sellerdesk/sellerdesk-backend/internal/events"
	"github.com/sellerdesk/sellerdesk-backend/internal/handlers"
	"github.com/sellerdesk/sellerdesk-backend/internal/jobs"
	"github.com/sellerdesk/sellerdesk-backend/internal/logging"
	"github.com/sellerdesk/sellerdesk-backend/internal/middleware"
	"github.com/sellerdesk/sellerdesk-backend/internal/routes"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
	"github.com/sellerdesk/sellerdesk-backend/internal/shopee"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.Environment)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Redis, used for webhook delivery dedup
	cacheClient, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Kafka event publisher (no-op when no brokers are configured)
	publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventTopic)
	if err != nil {
		slog.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}

	shopeeClient := shopee.NewClient(cfg.ShopeePartnerID, cfg.ShopeePartnerKey, cfg.ShopeeBaseURL)

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	shopService := services.NewShopService(database.DB)
	invitationService := services.NewInvitationService(database.DB)
	productService := services.NewProductService(database.DB, publisher)
	orderService := services.NewOrderService(database.DB, publisher)
	integrationService := services.NewIntegrationService(database.DB, shopeeClient, productService, orderService, publisher)
	webhookService := services.NewWebhookService(database.DB, cfg, cacheClient, integrationService, orderService, productService, publisher)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	shopHandler := handlers.NewShopHandler(shopService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	integrationHandler := handlers.NewIntegrationHandler(integrationService, cfg)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	healthHandler := handlers.NewHealthHandler(cacheClient)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB,
		authHandler, shopHandler, invitationHandler, productHandler,
		orderHandler, integrationHandler, webhookHandler, healthHandler)

	// Background jobs: token keep-alive + webhook retry dispatch
	scheduler := jobs.NewScheduler(cfg, integrationService, webhookService)
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	scheduler.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := publisher.Close(); err != nil {
		slog.Error("kafka producer close error", "error", err)
	}
	if err := cacheClient.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
