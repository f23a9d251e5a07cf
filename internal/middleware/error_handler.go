package middleware

import (
	"errors"

	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is the global error handler for errors returned by handlers. Fiber errors keep
// their code and message; anything else is logged and answered with a bare 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := statusOf(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Str("trace_id", GetTraceID(c)).Str("method", c.Method()).Str("path", c.Path()).
			Err(err).Msg("unhandled error")
	}
	return response.Error(c, message, code, nil)
}

func statusOf(err error) (int, string) {
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}
