package middleware

import (
	"strings"

	"assetverse-backend/internal/pkg/constants"
	"assetverse-backend/internal/pkg/response"
	"assetverse-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Claims is the identity carried by a bearer token issued by the identity service.
type Claims struct {
	SessionUser
	jwt.RegisteredClaims
}

// BearerIdentity verifies an "Authorization: Bearer" HS256 token and puts its identity in
// Locals under "user", replacing any session user. Requests without the header pass through
// unchanged; a present but invalid token is rejected with 401.
func BearerIdentity(secret string) fiber.Handler {
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || secret == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		var claims Claims
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, keyFunc); err != nil {
			log.Info().Str("trace_id", GetTraceID(c)).Err(err).Msg("bearer: token rejected")
			return response.Unauthorized(c, "Unauthorized")
		}
		if !validation.IsValidEmail(claims.Email) || !validation.IsValidName(claims.Name) || !constants.IsValidRole(claims.Role) {
			log.Info().Str("trace_id", GetTraceID(c)).Str("role", claims.Role).Msg("bearer: token without usable identity")
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(userLocal, claims.SessionUser.toMap())
		c.Locals(authSourceLocal, AuthSourceBearer)
		return c.Next()
	}
}
