package assets

import (
	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/interfaces/handlers/common"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Coordinator *allocation.Coordinator
}

// Create POST /api/v1/assets
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	var in inventory.CreateAssetInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "name, type and quantity are required", fiber.StatusBadRequest, nil)
	}
	a, err := h.Coordinator.CreateAsset(c.Context(), actor, in)
	if err != nil {
		return common.Error(c, err)
	}
	return response.SuccessCreated(c, "Asset created", a, nil)
}
