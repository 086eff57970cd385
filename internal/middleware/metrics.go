package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/clinicorp/n0-error-tracker/internal/metrics"
)

// Metrics records request count and latency per matched route template.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		metrics.HttpRequestsTotal.WithLabelValues(route, strconv.Itoa(status), c.Method()).Inc()
		metrics.HttpRequestDuration.WithLabelValues(route, c.Method()).Observe(time.Since(start).Seconds())
		return err
	}
}
