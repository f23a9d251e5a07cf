package auth

import (
	"context"

	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/application/sessions"
	"assetverse-backend/internal/middleware"
	"assetverse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints. Identity itself is verified upstream;
// these endpoints only expose it and manage the cookie session.
type Handlers struct {
	Rdb    *redis.Client
	Config middleware.SessionConfig
}

// StartSession POST /api/v1/auth/session: turn the verified bearer identity into a cookie
// session, SAdd user_sessions:email, set cookie.
func (h *Handlers) StartSession(c *fiber.Ctx) error {
	actor, ok := allocation.ActorFromUser(middleware.GetUser(c))
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if h.Rdb == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		Email:       actor.Email,
		Name:        actor.Name,
		Role:        actor.Role,
		CompanyName: actor.CompanyName,
		CompanyLogo: actor.CompanyLogo,
	})

	ctx := context.Background()
	if err := sessions.Track(ctx, h.Rdb, actor.Email, sessionID); err != nil {
		log.Error().Str("email", actor.Email).Err(err).Msg("auth: could not track session")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Session started", fiber.Map{"user": actor}, nil)
}

// Me GET /api/v1/auth/me: return the current identity in standard success format.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	actor, ok := allocation.ActorFromUser(middleware.GetUser(c))
	if !ok {
		log.Info().Str("path", "/auth/me").
			Bool("session_id_present", sessionID != "").
			Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
			Msg("auth/me: returning 401 Not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": actor}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop this session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if h.Rdb != nil && sessionID != "" {
		actor, _ := allocation.ActorFromUser(middleware.GetUser(c))
		if err := sessions.Forget(ctx, h.Rdb, actor.Email, sessionID); err != nil {
			log.Warn().Str("email", actor.Email).Err(err).Msg("auth: logout could not drop session")
		}
	}
	h.clearSession(c)
	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/sessions: revoke every session of the current identity.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	actor, ok := allocation.ActorFromUser(middleware.GetUser(c))
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if h.Rdb == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	n, err := sessions.DestroyAll(context.Background(), h.Rdb, actor.Email)
	if err != nil {
		log.Error().Str("email", actor.Email).Err(err).Msg("auth: could not revoke sessions")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	h.clearSession(c)
	return response.Success(c, "All sessions revoked", fiber.Map{"revoked": n}, nil)
}

func (h *Handlers) clearSession(c *fiber.Ctx) {
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)
}
