package database

import (
	"testing"

	"assetverse-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpen_SQLiteLifecycle(t *testing.T) {
	h, err := Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, h.AutoMigrate())
	require.NoError(t, h.Ping())

	for _, m := range domain.Models() {
		assert.True(t, h.DB.Migrator().HasTable(m))
	}
	assert.True(t, h.DB.Migrator().HasIndex(&domain.Affiliation{}, "idx_affiliations_active"))

	require.NoError(t, h.Close())
	assert.Error(t, h.Ping())
}

func TestNilHandle(t *testing.T) {
	var h *Handle
	assert.NoError(t, h.Ping())
	assert.NoError(t, h.Close())
}
