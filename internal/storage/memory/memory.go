// internal/storage/memory/memory.go
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/pkg/core"
)

// Backend keeps snapshots as a JSON file on disk, optionally gzipped.
type Backend struct {
	cfg config.MemoryConfig

	mu sync.Mutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Path is the snapshot file location.
func (b *Backend) Path() string {
	name := "world.json"
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

// SaveSnapshot writes s to a temporary file in the output directory and
// renames it over the previous snapshot, so readers never see a torn file.
func (b *Backend) SaveSnapshot(ctx context.Context, s core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return writeAtomic(b.Path(), b.cfg.CompressOutput, s)
}

// LoadSnapshot reads the snapshot file.
func (b *Backend) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := readSnapshot(b.Path(), b.cfg.CompressOutput)
	if errors.Is(err, os.ErrNotExist) {
		return core.Snapshot{}, core.ErrNoSnapshot
	}
	return s, err
}
