package database

import (
	"errors"
	"strings"

	"assetverse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Handle is the process-wide store handle. It is opened once at startup, shared by every
// store and the allocation coordinator, and closed on shutdown.
type Handle struct {
	DB *gorm.DB
}

// Open opens a GORM DB from DSN. "sqlite:<path>" selects the embedded SQLite driver (local runs,
// tests); anything else is treated as a Postgres DSN.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers (PgBouncer, Supabase, Render).
func Open(dsn string) (*Handle, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database DSN is empty")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, sqlitePrefix) {
		db, err = gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), cfg)
		if err == nil {
			// SQLite allows one writer; a single connection keeps :memory: databases shared too.
			if sqlDB, errDB := db.DB(); errDB == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	} else {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	}
	if err != nil {
		return nil, err
	}
	return &Handle{DB: db}, nil
}

// AutoMigrate creates or updates the asset, request, assignment, affiliation and restock tables.
func (h *Handle) AutoMigrate() error {
	return h.DB.AutoMigrate(domain.Models()...)
}

// Ping checks the underlying connection (health endpoint).
func (h *Handle) Ping() error {
	if h == nil || h.DB == nil {
		return nil
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the connection pool.
func (h *Handle) Close() error {
	if h == nil || h.DB == nil {
		return nil
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
