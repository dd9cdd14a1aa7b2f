package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the state as a single JSON document. Every save rewrites
// the whole file through a temp file and rename, so a crash leaves either the
// previous or the new document on disk.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads and decodes the file. A missing file yields ErrNotExist.
func (b *FileBackend) Load(_ context.Context) (*State, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return decodeState(data)
}

// Save writes st to a temp file next to the target and renames it over the
// target.
func (b *FileBackend) Save(_ context.Context, st *State) error {
	data, err := encodeState(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between saves.
func (b *FileBackend) Close() error { return nil }
