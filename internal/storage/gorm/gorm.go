// Package gormstorage persists world snapshots in relational tables through
// GORM. It is shared by the sqlite and postgres backends.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/railtycoon/server/internal/model"
	"github.com/railtycoon/server/internal/model/convert"
	"github.com/railtycoon/server/pkg/core"
	"gorm.io/gorm"
)

// Backend stores a snapshot as rows of the model.SnapshotModels tables.
type Backend struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

// New creates a GORM backend on an open connection.
func New(db *gorm.DB, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{db: db, log: log, now: time.Now}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the snapshot tables.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate snapshot tables: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (b *Backend) Close() error {
	return nil
}

// SaveSnapshot replaces every snapshot table in one transaction.
func (b *Backend) SaveSnapshot(ctx context.Context, s core.Snapshot) error {
	rows, err := convert.SnapshotToModels(s, b.now())
	if err != nil {
		return fmt.Errorf("failed to convert snapshot: %w", err)
	}

	start := time.Now()
	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range model.SnapshotModels {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return fmt.Errorf("clearing %T: %w", m, err)
			}
		}
		if err := tx.Create(&rows.Stats).Error; err != nil {
			return fmt.Errorf("writing world stats: %w", err)
		}
		if err := createAll(tx, rows.Owners); err != nil {
			return fmt.Errorf("writing owners: %w", err)
		}
		if err := createAll(tx, rows.Loans); err != nil {
			return fmt.Errorf("writing loans: %w", err)
		}
		if err := createAll(tx, rows.Terminals); err != nil {
			return fmt.Errorf("writing terminals: %w", err)
		}
		if err := createAll(tx, rows.Lines); err != nil {
			return fmt.Errorf("writing lines: %w", err)
		}
		if err := createAll(tx, rows.Units); err != nil {
			return fmt.Errorf("writing units: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.log.Debug("Snapshot saved",
		"owners", len(rows.Owners),
		"terminals", len(rows.Terminals),
		"lines", len(rows.Lines),
		"units", len(rows.Units),
		"duration", time.Since(start))
	return nil
}

// LoadSnapshot reads the snapshot tables back. An empty world_stats table
// means nothing was saved.
func (b *Backend) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	db := b.db.WithContext(ctx)

	var rows model.Snapshot
	if err := db.First(&rows.Stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Snapshot{}, core.ErrNoSnapshot
		}
		return core.Snapshot{}, fmt.Errorf("reading world stats: %w", err)
	}
	if err := db.Order("id").Find(&rows.Owners).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("reading owners: %w", err)
	}
	if err := db.Order("id").Find(&rows.Loans).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("reading loans: %w", err)
	}
	if err := db.Order("id").Find(&rows.Terminals).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("reading terminals: %w", err)
	}
	if err := db.Order("id").Find(&rows.Lines).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("reading lines: %w", err)
	}
	if err := db.Order("id").Find(&rows.Units).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("reading units: %w", err)
	}

	return convert.ModelsToSnapshot(rows)
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}
