package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status, message = fiber.StatusNotFound, "Report not found"
	case errors.Is(err, services.ErrAccessDenied):
		status, message = fiber.StatusForbidden, "Access denied"
	case errors.Is(err, services.ErrDuplicateKey):
		status, message = fiber.StatusConflict, "A report with this key already exists"
	case errors.Is(err, services.ErrValidation):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidTransition):
		status, message = fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, services.ErrStatusConflict):
		status, message = fiber.StatusConflict, "Report status changed, reload and try again"
	default:
		slog.Error("request failed",
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func idParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
