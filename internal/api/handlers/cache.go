package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/casestrainer/casestrainer/internal/cache"
)

// ClearUnverified handles POST /api/cache/clear-unverified: drops every
// unverified cache entry so a stale database outage doesn't pin negative
// results past their normal TTL, without touching verified entries.
func ClearUnverified(vc *cache.VerificationCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cleared, err := vc.ClearUnverified(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"cleared": cleared})
	}
}
