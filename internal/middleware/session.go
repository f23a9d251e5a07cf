package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for Redis-backed session.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "assetverse.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 72 * time.Hour

	sessionIDLocal    = "session_id"
	sessionDataLocal  = "session_data"
	sessionDirtyLocal = "session_dirty"
)

// SessionUser is the identity stored in session under "user". Bearer tokens carry the
// same fields.
type SessionUser struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
	CompanyLogo string `json:"company_logo,omitempty"`
}

func (u SessionUser) toMap() map[string]interface{} {
	return map[string]interface{}{
		"email":        u.Email,
		"name":         u.Name,
		"role":         u.Role,
		"company_name": u.CompanyName,
		"company_logo": u.CompanyLogo,
	}
}

// Session loads the session named by the assetverse.sid cookie from Redis (key session:<id>)
// and puts its user in Locals. After the handler a changed session is written back with a
// fresh TTL; an unchanged one only has its TTL extended.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)

	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		sessionID := parseSessionCookie(c.Cookies(SessionCookieName))

		data := make(map[string]interface{})
		if sessionID != "" {
			b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
			switch {
			case err == redis.Nil:
				sessionID = ""
			case err != nil:
				log.Warn().Err(err).Msg("session: load failed")
				sessionID = ""
			default:
				_ = json.Unmarshal(b, &data)
			}
		}

		c.Locals(sessionDataLocal, data)
		c.Locals(userLocal, data["user"])
		c.Locals(sessionIDLocal, sessionID)
		c.Locals(sessionDirtyLocal, false)

		if err := c.Next(); err != nil {
			return err
		}

		sid := GetSessionID(c)
		if sid == "" {
			return nil
		}
		key := SessionRedisPrefix + sid
		if dirty, _ := c.Locals(sessionDirtyLocal).(bool); dirty {
			updated, _ := c.Locals(sessionDataLocal).(map[string]interface{})
			b, _ := json.Marshal(updated)
			if err := rdb.Set(ctx, key, b, sessionMaxAge).Err(); err != nil {
				log.Error().Str("trace_id", GetTraceID(c)).Err(err).Msg("session: save failed")
			}
			return nil
		}
		_ = rdb.Expire(ctx, key, sessionMaxAge).Err()
		return nil
	}, rdb, nil
}

// parseSessionCookie accepts "s:<id>" or "s:<id>.<signature>" and returns <id> when it is a uuid.
func parseSessionCookie(raw string) string {
	raw = strings.TrimPrefix(raw, "s:")
	id, _, _ := strings.Cut(raw, ".")
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// GetSessionID returns the current session ID from context (for login/logout).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// SetSessionUser stores user in the session and marks it for saving.
// Call RegenerateSessionID first so a new identity never reuses an old id.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals(sessionDataLocal).(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["user"] = user.toMap()
	c.Locals(sessionDataLocal, data)
	c.Locals(userLocal, data["user"])
	c.Locals(sessionDirtyLocal, true)
}

// RegenerateSessionID assigns a new session id. The caller sets the cookie to "s:"+id.
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	c.Locals(sessionDirtyLocal, true)
	return newID
}

// DestroySession clears the session from Locals so nothing is written back; the caller
// clears the cookie and the Redis key.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, make(map[string]interface{}))
	c.Locals(userLocal, nil)
	c.Locals(sessionIDLocal, "")
	c.Locals(sessionDirtyLocal, false)
}

// SessionCookieConfig returns cookie options for SetCookie/ClearCookie.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if cfg.AllowCrossSiteDev {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
