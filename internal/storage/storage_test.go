// internal/storage/storage_test.go
package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/database"
	"github.com/railtycoon/server/internal/storage"
	"github.com/railtycoon/server/internal/storage/memory"
	sqlitestorage "github.com/railtycoon/server/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{Type: "memory", Memory: config.MemoryConfig{OutputDir: t.TempDir()}}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "redis"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestNewBackend_RequiresDatabase(t *testing.T) {
	for _, typ := range []string{"sqlite", "postgres"} {
		assert.True(t, storage.NeedsDatabase(typ))
		_, err := storage.NewBackend(config.StorageConfig{Type: typ}, nil, nil)
		assert.Error(t, err, typ)
	}
	assert.False(t, storage.NeedsDatabase("memory"))
}

func TestNewBackend_Sqlite(t *testing.T) {
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.Open("sqlite", filepath.Join(t.TempDir(), "world.db")))
	defer m.Close()

	b, err := storage.NewBackend(config.StorageConfig{Type: "sqlite"}, m, nil)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
}
