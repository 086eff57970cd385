package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type ImportHandler struct {
	imports *services.ImportService
}

func NewImportHandler(imports *services.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import accepts rows already parsed from the spreadsheet by the client.
func (h *ImportHandler) Import(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Rows) == 0 {
		return badRequest(c, "No rows to import")
	}

	res, err := h.imports.ImportReports(c.UserContext(), actor, req.Rows)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
