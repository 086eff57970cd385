package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
)

// AdminRequired rejects callers whose stored role is not admin. Configured
// admin ids and emails are promoted by Actor before this runs.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
