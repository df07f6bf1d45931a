package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/railtycoon/server/pkg/core"
)

func writeAtomic(path string, compress bool, s core.Snapshot) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".world-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err = json.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string, compressed bool) (core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Snapshot{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var s core.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return s, nil
}
