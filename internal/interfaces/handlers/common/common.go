package common

import (
	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/middleware"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Actor returns the caller's identity. When it is missing, the 401 has already been written
// and the returned error should be returned by the handler.
func Actor(c *fiber.Ctx) (allocation.Actor, bool, error) {
	actor, ok := allocation.ActorFromUser(middleware.GetUser(c))
	if !ok {
		return allocation.Actor{}, false, response.Unauthorized(c, "Unauthorized")
	}
	return actor, true, nil
}

// ParamID parses the :id route parameter.
func ParamID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false, response.Error(c, "Invalid id", fiber.StatusBadRequest, nil)
	}
	return id, true, nil
}

// StatusFor maps an allocation error kind to its HTTP status.
func StatusFor(kind allocation.Kind) int {
	switch kind {
	case allocation.KindNotFound:
		return fiber.StatusNotFound
	case allocation.KindConflict:
		return fiber.StatusConflict
	case allocation.KindInvalidArgument:
		return fiber.StatusBadRequest
	case allocation.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// Error writes err in the standard error format. The conflict or not-found reason goes in
// details.reason; internal causes are logged, never sent.
func Error(c *fiber.Ctx, err error) error {
	kind := allocation.KindOf(err)
	code := StatusFor(kind)
	if code == fiber.StatusInternalServerError {
		log.Error().Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Err(err).Msg("allocation request failed")
		return response.Error(c, "Internal Server Error", code, nil)
	}
	if kind == allocation.KindForbidden {
		return response.Forbidden(c)
	}
	if reason := allocation.ReasonOf(err); reason != "" {
		return response.Reason(c, err.Error(), code, reason)
	}
	return response.Error(c, err.Error(), code, nil)
}
