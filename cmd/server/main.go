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

	"github.com/clinicorp/n0-error-tracker/internal/config"
	"github.com/clinicorp/n0-error-tracker/internal/database"
	"github.com/clinicorp/n0-error-tracker/internal/handlers"
	"github.com/clinicorp/n0-error-tracker/internal/logging"
	"github.com/clinicorp/n0-error-tracker/internal/mailer"
	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/routes"
	"github.com/clinicorp/n0-error-tracker/internal/services"
	"github.com/clinicorp/n0-error-tracker/internal/sla"
	"github.com/clinicorp/n0-error-tracker/internal/sources"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Webhook sources
	registry, err := sources.LoadFromFile(cfg.WebhookSourcesPath)
	if err != nil {
		slog.Error("failed to load webhook sources", "path", cfg.WebhookSourcesPath, "error", err)
		os.Exit(1)
	}
	slog.Info("webhook sources loaded", "sources", registry.Names())

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also persisted to system_logs
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	logging.SetupWithDB(cfg.AppEnv, dbLogHandler)

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	metrics.Init()

	// Services
	st := store.New(database.DB)
	dispatcher := services.NewNotificationDispatcher(st, newMailer(cfg), cfg.FromAddress(), cfg.AppURL, cfg.SLAExpiryAge, nil)
	engine := services.NewTransitionEngine(st, dispatcher, nil)
	reportService := services.NewReportService(st, engine, dispatcher, nil)
	importService := services.NewImportService(st, nil)
	userService := services.NewUserService(st, config.SplitList(cfg.AdminOpenIDs), config.SplitList(cfg.AdminEmails))
	webhookService := services.NewWebhookService(st, registry, nil)

	// SLA sweep
	sweeper := sla.NewSweeper(st, engine, dispatcher, sla.Config{
		WarningAge: cfg.SLAWarningAge,
		ExpiryAge:  cfg.SLAExpiryAge,
	}, nil)
	scheduler := sla.NewScheduler(sweeper, cfg.SLASweepSpec)
	if err := scheduler.Start(); err != nil {
		slog.Error("sla scheduler failed to start", "error", err)
		os.Exit(1)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

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
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, userService, routes.Handlers{
		Health:        handlers.NewHealthHandler(database.Ping, scheduler, registry.Names),
		Reports:       handlers.NewReportHandler(reportService),
		Imports:       handlers.NewImportHandler(importService),
		Notifications: handlers.NewNotificationHandler(dispatcher),
		Users:         handlers.NewUserHandler(userService),
		Webhooks:      handlers.NewWebhookHandler(webhookService),
	})

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

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	scheduler.Stop()
	dispatcher.Wait()
	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func newMailer(cfg *config.Config) mailer.Mailer {
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey != "" {
			return mailer.NewSendGridMailer(cfg.SendGridAPIKey, "N0 Error Tracker")
		}
	case "smtp":
		if cfg.EmailUser != "" {
			return &mailer.SMTPMailer{
				Host:     cfg.EmailHost,
				Port:     cfg.EmailPort,
				Username: cfg.EmailUser,
				Password: cfg.EmailPassword,
				Timeout:  15 * time.Second,
			}
		}
	}
	slog.Warn("email delivery disabled", "provider", cfg.EmailProvider)
	return mailer.Noop{}
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
