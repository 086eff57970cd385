package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/middleware"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.reports.Create(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var q dto.ListReportsQuery
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "Invalid query parameters")
	}

	reports, err := h.reports.List(c.UserContext(), actor, &q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"limit":   q.Limit,
		"offset":  q.Offset,
	})
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	detail, err := h.reports.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

func (h *ReportHandler) Update(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}
	var req dto.UpdateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reports.Update(c.UserContext(), actor, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	if err := h.reports.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Report deleted"})
}

func (h *ReportHandler) Export(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	export, err := h.reports.Export(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.Filename+`.json"`)
	return c.JSON(export)
}

func (h *ReportHandler) Stats(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	stats, err := h.reports.Stats(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *ReportHandler) AverageResolution(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	hours, err := h.reports.AverageResolutionHours(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AverageResolutionResponse{Hours: hours})
}

func (h *ReportHandler) CountByClient(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	n, err := h.reports.CountByClient(c.UserContext(), actor, c.Query("clientId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CountResponse{Count: n})
}

func (h *ReportHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.reports.BulkUpdateStatus(c.UserContext(), actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ReportHandler) BulkDelete(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	var req dto.BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.reports.BulkDelete(c.UserContext(), actor, req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ReportHandler) ListComments(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	comments, err := h.reports.ListComments(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

func (h *ReportHandler) AddComment(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return unauthorized(c)
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "Invalid report ID")
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := h.reports.AddComment(c.UserContext(), actor, id, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
