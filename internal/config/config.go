package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	JWTSecret           string // HS256 key for bearer identities; empty disables bearer auth
	DatabaseURL         string // postgres DSN, or sqlite:<path> for local runs
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// AllocationAtomic runs approve/return inside one database transaction. When false each
	// store call commits alone and failures are undone by compensation.
	AllocationAtomic     bool
	RestockRelayInterval time.Duration
	RestockRelayRate     float64 // tasks per second
	RestockMaxAttempts   int
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOCATION_ATOMIC", true)
	v.SetDefault("RESTOCK_RELAY_INTERVAL", "30s")
	v.SetDefault("RESTOCK_RELAY_RATE", 20.0)
	v.SetDefault("RESTOCK_MAX_ATTEMPTS", 10)

	interval := v.GetDuration("RESTOCK_RELAY_INTERVAL")
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Config{
		Env:                  strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		Port:                 v.GetString("PORT"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		SessionSecret:        v.GetString("SESSION_SECRET"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisURL:             v.GetString("REDIS_URL"),
		FrontendURLEndsWith:  v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:          v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:    v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:       v.GetString("HEALTH_ADMIN_KEY"),
		AllocationAtomic:     v.GetBool("ALLOCATION_ATOMIC"),
		RestockRelayInterval: interval,
		RestockRelayRate:     v.GetFloat64("RESTOCK_RELAY_RATE"),
		RestockMaxAttempts:   v.GetInt("RESTOCK_MAX_ATTEMPTS"),
	}, nil
}
