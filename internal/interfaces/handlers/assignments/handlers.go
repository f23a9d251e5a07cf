package assignments

import (
	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/interfaces/handlers/common"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Coordinator *allocation.Coordinator
}

// Return POST /api/v1/assignments/:id/return
func (h *Handlers) Return(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := common.ParamID(c)
	if !ok {
		return err
	}
	a, err := h.Coordinator.Return(c.Context(), actor, id)
	if err != nil {
		return common.Error(c, err)
	}
	return response.Success(c, "Asset returned", a, nil)
}
