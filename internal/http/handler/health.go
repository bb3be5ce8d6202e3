package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/cache"
	"docvault/internal/database"
)

// HealthCheck reports healthy only while the database answers a ping. The blob
// cache is optional: when it is configured but unreachable the service still
// answers 200, reported as degraded.
func HealthCheck(db database.Pinger, blobCache cache.Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if blobCache != nil {
			if err := blobCache.Ping(ctx); err != nil {
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "degraded", "cache": "unavailable"})
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
