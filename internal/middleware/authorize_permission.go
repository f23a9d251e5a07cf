package middleware

import (
	"assetverse-backend/internal/pkg/constants"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission lets the request through only when the caller's role holds permission.
// An unknown permission is a wiring bug and fails with 500.
func AuthorizePermission(permission string) fiber.Handler {
	if _, ok := constants.PermissionRoles[permission]; !ok {
		log.Error().Str("permission", permission).Msg("authorize: permission has no roles configured")
	}
	return func(c *fiber.Ctx) error {
		email, role := identity(GetUser(c))
		if email == "" || role == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		if _, ok := constants.PermissionRoles[permission]; !ok {
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, role) {
			log.Info().Str("trace_id", GetTraceID(c)).Str("email", email).Str("role", role).
				Str("permission", permission).Msg("authorize: denied")
			return response.Forbidden(c)
		}
		return c.Next()
	}
}
