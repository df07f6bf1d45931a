// Package sqlitestorage implements the storage.Backend interface on SQLite.
// With no database file configured the database lives in memory and is
// dumped to disk periodically via VACUUM INTO; on start the last dump is
// loaded back.
package sqlitestorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/railtycoon/server/internal/database"
	gormstorage "github.com/railtycoon/server/internal/storage/gorm"
	"github.com/railtycoon/server/pkg/core"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps; empty disables them
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *database.Manager
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a new SQLite storage backend on an open manager.
func New(cfg Config, db *database.Manager, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		Backend:  gormstorage.New(db.DB, log),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Init migrates the schema, seeds the database from the last dump and
// starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.db.Setup(); err != nil {
		return err
	}

	if b.cfg.DumpPath == "" {
		return nil
	}

	if err := b.seedFromDump(); err != nil {
		return err
	}

	if b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the
// connection.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if b.cfg.DumpPath != "" {
			err = b.db.DumpMemoryToDisk(b.cfg.DumpPath)
		}
		err = errors.Join(err, b.db.Close())
	})
	return err
}

func (b *Backend) seedFromDump() error {
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	disk, err := database.GetSqliteDBStandalone(b.cfg.DumpPath)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", b.cfg.DumpPath, err)
	}
	if sqlDB, err := disk.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx := context.Background()
	s, err := gormstorage.New(disk, b.log).LoadSnapshot(ctx)
	if errors.Is(err, core.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read dump %s: %w", b.cfg.DumpPath, err)
	}
	if err := b.SaveSnapshot(ctx, s); err != nil {
		return fmt.Errorf("failed to seed from dump: %w", err)
	}
	b.log.Info("Loaded world from sqlite dump", "path", b.cfg.DumpPath, "owners", len(s.Owners))
	return nil
}

// dumpLoop periodically dumps the database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
				b.log.Error("Error dumping to disk", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
