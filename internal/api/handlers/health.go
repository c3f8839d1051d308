package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/observability"
)

// HealthCheck handles GET /api/health: a liveness probe that also confirms
// the KeyValueStore is reachable.
func HealthCheck(store kvstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  "store unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "casestrainer-api",
			"version": "1.0.0",
		})
	}
}

// MetricsHandler handles GET /metrics.
func MetricsHandler(metrics *observability.Metrics) fiber.Handler {
	return adaptor.HTTPHandler(metrics.Handler())
}
