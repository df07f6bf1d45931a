package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/railtycoon/server/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "rail")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "tycoon")

	assert.Equal(t, "host=db.internal port=6543 user=rail password=pw dbname=tycoon sslmode=disable", PostgresDSN())
}

func TestManager_OpenUnknownDialect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Open("mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestManager_SqliteFileSetupAndDump(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Open("sqlite", filepath.Join(dir, "world.db")))
	t.Cleanup(func() { m.Close() })

	assert.False(t, m.InMemory)
	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.EnginePerformance{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.Line{}))

	require.NoError(t, m.DB.Create(&model.Owner{ID: "p1", Balance: 42}).Error)

	dump := filepath.Join(dir, "dump's.db")
	require.NoError(t, m.DumpMemoryToDisk(dump))
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryToDisk(dump))

	_, err := os.Stat(dump)
	require.NoError(t, err)

	copyDB, err := GetSqliteDBStandalone(dump)
	require.NoError(t, err)
	var owner model.Owner
	require.NoError(t, copyDB.First(&owner, "id = ?", "p1").Error)
	assert.Equal(t, int64(42), owner.Balance)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManager_SetupWithoutOpen(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).Setup())
	assert.NoError(t, NewManager(zerolog.Nop()).Close())
}
