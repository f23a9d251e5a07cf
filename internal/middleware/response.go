package middleware

import (
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotFound answers unmatched routes in the standard error format. Register it last.
func NotFound() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return response.Error(c, "Route not found", fiber.StatusNotFound, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
	}
}
