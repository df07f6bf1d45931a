package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/database"
	"github.com/railtycoon/server/internal/storage"
	"github.com/rs/zerolog"
)

// openStorage creates and initializes the configured backend. The database
// manager is nil for the memory backend.
func openStorage(cfg config.StorageConfig, log *slog.Logger, zl zerolog.Logger) (storage.Backend, *database.Manager, error) {
	var dbm *database.Manager
	if storage.NeedsDatabase(cfg.Type) {
		dbm = database.NewManager(zl.With().Str("component", "database").Logger())
		if err := dbm.Open(cfg.Type, cfg.SQLite.Path); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
		}
		log.Info("Database connection established", "dialect", dbm.Dialect, "inMemory", dbm.InMemory)
	}

	backend, err := storage.NewBackend(cfg, dbm, log)
	if err != nil {
		closeQuietly(dbm)
		return nil, nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		closeQuietly(dbm)
		return nil, nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	if loc, ok := backend.(storage.Locator); ok {
		log.Info("Storage backend initialized", "type", cfg.Type, "path", loc.Path())
	} else {
		log.Info("Storage backend initialized", "type", cfg.Type)
	}
	return backend, dbm, nil
}

func closeQuietly(dbm *database.Manager) {
	if dbm != nil {
		_ = dbm.Close()
	}
}

// connectorLogger is the zerolog logger handed to the database and influx
// managers.
func connectorLogger(w *os.File, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
