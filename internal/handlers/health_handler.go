package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
)

// SweepStatus exposes when the SLA sweep last completed.
type SweepStatus interface {
	LastSweepAt() *time.Time
}

type HealthHandler struct {
	ping    func() error
	sweep   SweepStatus
	sources func() []string
}

func NewHealthHandler(ping func() error, sweep SweepStatus, sources func() []string) *HealthHandler {
	return &HealthHandler{ping: ping, sweep: sweep, sources: sources}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	resp := dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	}
	if h.sweep != nil {
		if t := h.sweep.LastSweepAt(); t != nil {
			s := t.UTC().Format(time.RFC3339)
			resp.LastSweepAt = &s
		}
	}
	if h.sources != nil {
		resp.Sources = len(h.sources())
	}
	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}
