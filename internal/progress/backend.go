package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryBackend keeps blobs in memory. Used in tests and for throwaway sessions.
type MemoryBackend struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		blobs: make(map[string][]byte),
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blob, ok := b.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(blob), true, nil
}

func (b *MemoryBackend) Put(_ context.Context, key string, blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = bytes.Clone(blob)
	return nil
}

// FileBackend stores each key as <dir>/<key>.json on local disk.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("progress directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating progress directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, filepath.Base(key)+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	blob, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading progress file: %w", err)
	}
	return blob, true, nil
}

// Put replaces the file atomically: write a temp file, then rename over the old one.
func (b *FileBackend) Put(_ context.Context, key string, blob []byte) error {
	tmp, err := os.CreateTemp(b.dir, ".progress-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		return fmt.Errorf("replacing progress file: %w", err)
	}
	return nil
}
