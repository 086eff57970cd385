package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type NotificationHandler struct {
	dispatcher *services.NotificationDispatcher
}

func NewNotificationHandler(d *services.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: d}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var q dto.NotificationsQuery
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "Invalid query parameters")
	}

	list, err := h.dispatcher.List(c.UserContext(), actor.ID, q.UnreadOnly, q.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	n, err := h.dispatcher.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CountResponse{Count: n})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}

	if err := h.dispatcher.MarkAsRead(c.UserContext(), actor.ID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Notification not found"})
		}
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	n, err := h.dispatcher.MarkAllAsRead(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MarkAllReadResponse{Updated: n})
}

// SendTestEmail is synchronous so the admin sees whether delivery worked.
func (h *NotificationHandler) SendTestEmail(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var req dto.EmailTestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	sent, err := h.dispatcher.SendTestEmail(c.UserContext(), actor, req.To)
	if err != nil {
		return respondError(c, err)
	}
	if !sent {
		return c.JSON(dto.SuccessResponse{Success: false, Message: "Email could not be sent"})
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Test email sent"})
}
