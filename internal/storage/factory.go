// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/database"
	"github.com/railtycoon/server/internal/storage/memory"
	postgresstorage "github.com/railtycoon/server/internal/storage/postgres"
	sqlitestorage "github.com/railtycoon/server/internal/storage/sqlite"
)

// DumpFileName is the sqlite dump written next to the memory snapshots.
const DumpFileName = "world.db"

// NeedsDatabase reports whether the storage type runs on a GORM connection.
func NeedsDatabase(storageType string) bool {
	return storageType == "sqlite" || storageType == "postgres"
}

// NewBackend creates a storage backend based on configuration. db must be
// open for the sqlite and postgres types.
func NewBackend(cfg config.StorageConfig, db *database.Manager, log *slog.Logger) (Backend, error) {
	if NeedsDatabase(cfg.Type) && (db == nil || db.DB == nil) {
		return nil, fmt.Errorf("%s backend requires an open database", cfg.Type)
	}

	switch cfg.Type {
	case "postgres":
		return postgresstorage.New(db, log), nil
	case "sqlite":
		sc := sqlitestorage.Config{DumpInterval: cfg.SQLite.DumpInterval}
		if db.InMemory {
			sc.DumpPath = filepath.Join(cfg.Memory.OutputDir, DumpFileName)
		}
		return sqlitestorage.New(sc, db, log), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
