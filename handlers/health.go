package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/database"
	"github.com/redteam-academy/api/utils/response"
)

// HandleCheckHealth reports service and database health
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if err := store.HealthCheck(); err != nil {
			dbStatus = "unavailable"
		}

		return response.Success(c, fiber.Map{
			"status":   "ok",
			"database": dbStatus,
		})
	}
}

// HandleRoot is the API liveness banner
func HandleRoot(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{
		"msg": "API works successfully",
	})
}

// HandleNotFound is the catch-all for unmatched routes, keeping every
// error response on the JSON envelope
func HandleNotFound(c *fiber.Ctx) error {
	return response.NotFound(c, "Route not found")
}
