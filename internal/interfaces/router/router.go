package router

import (
	"net/http"

	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/config"
	"assetverse-backend/internal/infrastructure/database"
	assethandler "assetverse-backend/internal/interfaces/handlers/assets"
	assignhandler "assetverse-backend/internal/interfaces/handlers/assignments"
	authhandler "assetverse-backend/internal/interfaces/handlers/auth"
	emphandler "assetverse-backend/internal/interfaces/handlers/employees"
	healthhandler "assetverse-backend/internal/interfaces/handlers/health"
	reqhandler "assetverse-backend/internal/interfaces/handlers/requests"
	"assetverse-backend/internal/middleware"
	"assetverse-backend/internal/obs"
	"assetverse-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CreateApp wires middleware, the store handle, the allocation coordinator and all routes.
// The returned handle and client are owned by the caller and must be closed on shutdown.
func CreateApp(cfg *config.Config) (*fiber.App, *allocation.Coordinator, *database.Handle, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.BearerIdentity(cfg.JWTSecret))
	app.Use(middleware.RouteLogger())

	app.Get("/metrics", adaptor.HTTPHandler(obs.Handler()))

	handle, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, nil, nil, err
	}
	if err := handle.AutoMigrate(); err != nil {
		_ = handle.Close()
		_ = rdb.Close()
		return nil, nil, nil, nil, err
	}
	coord := allocation.New(handle.DB, cfg.AllocationAtomic)
	log.Info().Bool("atomic", cfg.AllocationAtomic).Msg("allocation coordinator ready")

	hh := &healthhandler.Handlers{
		Rdb:                rdb,
		DB:                 handle,
		Restock:            coord.Restock,
		RestockMaxAttempts: cfg.RestockMaxAttempts,
		HealthAdminKey:     cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ah := &authhandler.Handlers{Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/session", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewSelf), ah.StartSession)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", middleware.RequireAuth(), ah.LogoutAll)

	// Assets
	asth := &assethandler.Handlers{Coordinator: coord}
	ag := app.Group("/api/v1/assets", middleware.RequireAuth())
	ag.Post("/", middleware.AuthorizePermission(constants.CreateAsset), asth.Create)

	// Requests
	rh := &reqhandler.Handlers{Coordinator: coord}
	rg := app.Group("/api/v1/requests", middleware.RequireAuth())
	rg.Post("/", middleware.AuthorizePermission(constants.RequestAsset), rh.Submit)
	rg.Post("/:id/approve", middleware.AuthorizePermission(constants.DecideRequest), rh.Approve)
	rg.Post("/:id/reject", middleware.AuthorizePermission(constants.DecideRequest), rh.Reject)

	// Assignments
	asgh := &assignhandler.Handlers{Coordinator: coord}
	sg := app.Group("/api/v1/assignments", middleware.RequireAuth())
	sg.Post("/:id/return", middleware.AuthorizePermission(constants.ReturnAsset), asgh.Return)

	// Employees
	eh := &emphandler.Handlers{Coordinator: coord}
	eg := app.Group("/api/v1/employees", middleware.RequireAuth())
	eg.Patch("/:id/remove", middleware.AuthorizePermission(constants.RemoveEmployee), eh.Remove)

	app.Use(middleware.NotFound())

	return app, coord, handle, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
