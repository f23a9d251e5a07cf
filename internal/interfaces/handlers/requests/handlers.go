package requests

import (
	"strings"

	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/interfaces/handlers/common"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves the request workflow endpoints.
type Handlers struct {
	Coordinator *allocation.Coordinator
}

// SubmitRequestBody is the JSON body for POST /api/v1/requests.
type SubmitRequestBody struct {
	AssetID string `json:"asset_id"`
	Note    string `json:"note"`
}

// Submit POST /api/v1/requests
func (h *Handlers) Submit(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	var body SubmitRequestBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "asset_id is required", fiber.StatusBadRequest, nil)
	}
	assetID, err := uuid.Parse(strings.TrimSpace(body.AssetID))
	if err != nil {
		return response.Error(c, "asset_id is required", fiber.StatusBadRequest, nil)
	}

	r, err := h.Coordinator.SubmitRequest(c.Context(), actor, assetID, body.Note)
	if err != nil {
		return common.Error(c, err)
	}
	return response.SuccessCreated(c, "Request submitted", r, nil)
}

// Approve POST /api/v1/requests/:id/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := common.ParamID(c)
	if !ok {
		return err
	}
	res, err := h.Coordinator.Approve(c.Context(), actor, id)
	if err != nil {
		return common.Error(c, err)
	}
	return response.Success(c, "Request approved and asset assigned", res, nil)
}

// Reject POST /api/v1/requests/:id/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	actor, ok, err := common.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := common.ParamID(c)
	if !ok {
		return err
	}
	r, err := h.Coordinator.Reject(c.Context(), actor, id)
	if err != nil {
		return common.Error(c, err)
	}
	return response.Success(c, "Request rejected", r, nil)
}
