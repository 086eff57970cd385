package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicorp/n0-error-tracker/internal/config"
	"github.com/clinicorp/n0-error-tracker/internal/handlers"
	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type Handlers struct {
	Health        *handlers.HealthHandler
	Reports       *handlers.ReportHandler
	Imports       *handlers.ImportHandler
	Notifications *handlers.NotificationHandler
	Users         *handlers.UserHandler
	Webhooks      *handlers.WebhookHandler
}

func Setup(app *fiber.App, cfg *config.Config, users *services.UserService, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Webhooks authenticate with a per-source token, not a user JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/receive", h.Webhooks.Receive)
	webhooks.Post("/receive/:source", h.Webhooks.Receive)

	protected := api.Group("", middleware.JWTProtected(cfg), middleware.Actor(users))
	admin := middleware.AdminRequired()

	protected.Get("/me", h.Users.Me)
	protected.Get("/agents", h.Users.Agents)

	reports := protected.Group("/reports")
	reports.Get("/", h.Reports.List)
	reports.Post("/", h.Reports.Create)
	reports.Get("/stats", h.Reports.Stats)
	reports.Get("/average-resolution", h.Reports.AverageResolution)
	reports.Get("/count", h.Reports.CountByClient)
	reports.Post("/bulk/status", h.Reports.BulkUpdateStatus)
	reports.Post("/bulk/delete", h.Reports.BulkDelete)
	reports.Get("/:id", h.Reports.Get)
	reports.Put("/:id", h.Reports.Update)
	reports.Delete("/:id", h.Reports.Delete)
	reports.Get("/:id/export", h.Reports.Export)
	reports.Get("/:id/comments", h.Reports.ListComments)
	reports.Post("/:id/comments", h.Reports.AddComment)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notifications.List)
	notifications.Get("/unread-count", h.Notifications.UnreadCount)
	notifications.Post("/read-all", h.Notifications.MarkAllAsRead)
	notifications.Post("/:id/read", h.Notifications.MarkAsRead)

	protected.Post("/import/reports", admin, h.Imports.Import)
	protected.Post("/email/test", admin, h.Notifications.SendTestEmail)
}
