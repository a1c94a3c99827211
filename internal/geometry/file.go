package geometry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps every key in a single JSON document on disk.
type FileBackend struct {
	path string

	mu     sync.Mutex
	loaded bool
	values map[string]json.RawMessage
}

// NewFileBackend returns a backend stored at path. The file is read lazily.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.loadLocked(); err != nil {
		return nil, err
	}
	v, ok := b.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (b *FileBackend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.loadLocked(); err != nil {
		// Start over rather than refuse every future write.
		b.values = make(map[string]json.RawMessage)
		b.loaded = true
	}
	b.values[key] = json.RawMessage(value)

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) loadLocked() error {
	if b.loaded {
		return nil
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			b.values = make(map[string]json.RawMessage)
			b.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read state %s: %w", b.path, err)
	}
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse state %s: %w", b.path, err)
	}
	b.values = values
	b.loaded = true
	return nil
}
