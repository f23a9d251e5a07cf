package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	hrUser  = map[string]interface{}{"email": "hr@acme.io", "name": "Hana", "role": "hr", "company_name": "Acme", "company_logo": "logo.png"}
	empUser = map[string]interface{}{"email": "eli@mail.io", "name": "Eli", "role": "employee"}
)

func setupRequestTest(t *testing.T) (*Handlers, *allocation.Coordinator) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	coord := allocation.New(db, true)
	return &Handlers{Coordinator: coord}, coord
}

func newApp(h *Handlers, user map[string]interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	app.Post("/api/v1/requests", h.Submit)
	app.Post("/api/v1/requests/:id/approve", h.Approve)
	app.Post("/api/v1/requests/:id/reject", h.Reject)
	return app
}

func createAsset(t *testing.T, coord *allocation.Coordinator, qty int) *domain.Asset {
	hr, _ := allocation.ActorFromUser(hrUser)
	a, err := coord.CreateAsset(context.Background(), hr, inventory.CreateAssetInput{Name: "Monitor", Type: domain.AssetReturnable, Quantity: qty})
	require.NoError(t, err)
	return a
}

func submit(t *testing.T, coord *allocation.Coordinator, assetID uuid.UUID) *domain.Request {
	emp, _ := allocation.ActorFromUser(empUser)
	r, err := coord.SubmitRequest(context.Background(), emp, assetID, "")
	require.NoError(t, err)
	return r
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func errorReason(t *testing.T, resp *http.Response) string {
	out := decode(t, resp)
	e, _ := out["error"].(map[string]interface{})
	require.NotNil(t, e)
	details, _ := e["details"].(map[string]interface{})
	reason, _ := details["reason"].(string)
	return reason
}

func post(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest("POST", path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSubmit_Created(t *testing.T) {
	h, coord := setupRequestTest(t)
	asset := createAsset(t, coord, 1)

	resp := post(t, newApp(h, empUser), "/api/v1/requests", map[string]string{"asset_id": asset.AssetID.String(), "note": "desk setup"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "success", out["status"])
	data, _ := out["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "desk setup", data["note"])
	assert.Equal(t, "Monitor", data["asset_name"])
}

func TestSubmit_BadInput(t *testing.T) {
	h, _ := setupRequestTest(t)
	app := newApp(h, empUser)

	resp := post(t, app, "/api/v1/requests", map[string]string{"asset_id": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = post(t, app, "/api/v1/requests", map[string]string{"asset_id": uuid.New().String()})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, allocation.ReasonAssetNotFound, errorReason(t, resp))
}

func TestSubmit_Unauthenticated(t *testing.T) {
	h, coord := setupRequestTest(t)
	asset := createAsset(t, coord, 1)
	resp := post(t, newApp(h, nil), "/api/v1/requests", map[string]string{"asset_id": asset.AssetID.String()})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestApprove_Success(t *testing.T) {
	h, coord := setupRequestTest(t)
	asset := createAsset(t, coord, 2)
	req := submit(t, coord, asset.AssetID)

	resp := post(t, newApp(h, hrUser), "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "Request approved and asset assigned", out["message"])
	data, _ := out["data"].(map[string]interface{})
	assignment, _ := data["assignment"].(map[string]interface{})
	assert.Equal(t, "assigned", assignment["status"])

	got, err := coord.Inventory.Get(context.Background(), asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableQuantity)
}

func TestApprove_Conflicts(t *testing.T) {
	h, coord := setupRequestTest(t)
	app := newApp(h, hrUser)

	empty := createAsset(t, coord, 0)
	pending := submit(t, coord, empty.AssetID)
	resp := post(t, app, "/api/v1/requests/"+pending.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, allocation.ReasonOutOfStock, errorReason(t, resp))

	stocked := createAsset(t, coord, 1)
	req := submit(t, coord, stocked.AssetID)
	resp = post(t, app, "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = post(t, app, "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, allocation.ReasonAlreadyProcessed, errorReason(t, resp))
}

func TestApprove_NotFoundForbiddenAndBadID(t *testing.T) {
	h, coord := setupRequestTest(t)
	asset := createAsset(t, coord, 1)
	req := submit(t, coord, asset.AssetID)

	resp := post(t, newApp(h, hrUser), "/api/v1/requests/"+uuid.New().String()+"/approve", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = post(t, newApp(h, empUser), "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	otherHR := map[string]interface{}{"email": "hr@globex.io", "role": "hr", "company_name": "Globex"}
	resp = post(t, newApp(h, otherHR), "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = post(t, newApp(h, hrUser), "/api/v1/requests/not-a-uuid/approve", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReject(t *testing.T) {
	h, coord := setupRequestTest(t)
	app := newApp(h, hrUser)
	asset := createAsset(t, coord, 1)
	req := submit(t, coord, asset.AssetID)

	resp := post(t, app, "/api/v1/requests/"+req.RequestID.String()+"/reject", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, _ := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "rejected", data["status"])
	assert.Equal(t, "hr@acme.io", data["processed_by"])

	resp = post(t, app, "/api/v1/requests/"+req.RequestID.String()+"/reject", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp = post(t, app, "/api/v1/requests/"+req.RequestID.String()+"/approve", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
