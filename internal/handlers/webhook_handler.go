package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive authenticates the delivery against the source's shared token,
// sent as X-Webhook-Token or a bearer Authorization header.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var req dto.WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid webhook payload")
	}
	// Params aliases the request buffer; the source outlives the request as a metric label.
	if p := c.Params("source"); p != "" {
		req.Source = utils.CopyString(p)
	}
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		return badRequest(c, "source is required")
	}

	registry := h.webhooks.Registry()
	if !registry.Exists(source) {
		metrics.WebhooksReceivedTotal.WithLabelValues("unknown", "rejected").Inc()
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown webhook source",
		})
	}

	expected := registry.Token(source)
	got := c.Get("X-Webhook-Token")
	if got == "" {
		got = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		metrics.WebhooksReceivedTotal.WithLabelValues(source, "unauthorized").Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	event, err := h.webhooks.Receive(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.WebhookResponse{
		Success:  true,
		Message:  "Webhook received",
		EventID:  event.ID.String(),
		ReportID: event.ReportID,
	})
}
