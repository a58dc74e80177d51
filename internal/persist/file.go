package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alecgard/clawdeck/internal/config"
)

// FileBackend stores each slot as <dir>/<slot>.json.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend creates the directory if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	dir = config.ExpandHome(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory slots are written to.
func (f *FileBackend) Dir() string {
	return f.dir
}

func (f *FileBackend) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

func (f *FileBackend) Load(_ context.Context, slot string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(slot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return data, nil
}

// Save writes to a temporary file and renames it over the slot so a crash
// mid-write never leaves a truncated snapshot behind.
func (f *FileBackend) Save(_ context.Context, slot string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for slot %s: %w", slot, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing slot %s: %w", slot, err)
	}
	if err := os.Rename(tmpName, f.path(slot)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming slot %s: %w", slot, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
