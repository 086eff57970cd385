package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	return c.JSON(actor)
}

// Agents lists the users reports can be assigned to.
func (h *UserHandler) Agents(c *fiber.Ctx) error {
	users, err := h.users.ListAgents(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}
