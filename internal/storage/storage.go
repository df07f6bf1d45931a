// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/railtycoon/server/pkg/core"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was persisted yet.
var ErrNoSnapshot = core.ErrNoSnapshot

// Backend is the interface all snapshot stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveSnapshot replaces the persisted world with s.
	SaveSnapshot(ctx context.Context, s core.Snapshot) error
	// LoadSnapshot returns the last saved world or ErrNoSnapshot.
	LoadSnapshot(ctx context.Context) (core.Snapshot, error)
}

// Locator is implemented by backends that persist to a single file.
type Locator interface {
	Path() string
}
