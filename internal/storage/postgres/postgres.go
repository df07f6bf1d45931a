// Package postgres implements the storage.Backend interface on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/railtycoon/server/internal/database"
	gormstorage "github.com/railtycoon/server/internal/storage/gorm"
	"github.com/railtycoon/server/pkg/core"
)

// saveTimeout bounds a single snapshot write so a stalled server cannot
// hold the persistence goroutine forever.
const saveTimeout = 30 * time.Second

// Backend wraps the GORM backend with the postgres connection of a manager.
type Backend struct {
	*gormstorage.Backend
	db  *database.Manager
	log *slog.Logger
}

// New creates a postgres backend on an open manager.
func New(db *database.Manager, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		Backend: gormstorage.New(db.DB, log),
		db:      db,
		log:     log,
	}
}

// Init migrates the schema through the manager.
func (b *Backend) Init() error {
	if b.db.Dialect != "postgres" {
		return fmt.Errorf("postgres backend on %q connection", b.db.Dialect)
	}
	if err := b.db.Setup(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.log.Info("Postgres snapshot store ready")
	return nil
}

// SaveSnapshot writes s within saveTimeout.
func (b *Backend) SaveSnapshot(ctx context.Context, s core.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	return b.Backend.SaveSnapshot(ctx, s)
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}
