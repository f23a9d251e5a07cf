package employees

import (
	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/interfaces/handlers/common"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Coordinator *allocation.Coordinator
}

// Remove PATCH /api/v1/employees/:id/remove: :id is the affiliation id.
func (h *Handlers) Remove(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := common.ParamID(c)
	if !ok {
		return err
	}
	if err := h.Coordinator.RemoveEmployee(c.Context(), actor, id); err != nil {
		return common.Error(c, err)
	}
	return response.Success(c, "Employee removed from team", fiber.Map{"affiliation_id": id}, nil)
}
