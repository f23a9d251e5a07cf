package middleware

import (
	"assetverse-backend/internal/pkg/constants"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	userLocal       = "user"
	authSourceLocal = "auth_source"

	AuthSourceSession = "session"
	AuthSourceBearer  = "bearer"
)

// RequireAuth rejects requests without a usable identity (an email and a known role) with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if email, role := identity(GetUser(c)); email == "" || role == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		if c.Locals(authSourceLocal) == nil {
			c.Locals(authSourceLocal, AuthSourceSession)
		}
		return c.Next()
	}
}

// GetUser returns the identity map from Locals (nil if anonymous).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// AuthSource reports whether the identity came from the session cookie or a bearer token.
func AuthSource(c *fiber.Ctx) string {
	s, _ := c.Locals(authSourceLocal).(string)
	return s
}

func identity(user interface{}) (email, role string) {
	m, ok := user.(map[string]interface{})
	if !ok {
		return "", ""
	}
	email, _ = m["email"].(string)
	role, _ = m["role"].(string)
	if !constants.IsValidRole(role) {
		role = ""
	}
	return email, role
}
