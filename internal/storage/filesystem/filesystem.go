// Package filesystem provides a cold store on the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/andygrunwald/fuelprices/internal/storage"
)

// Store keeps objects as files below a root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cold store directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// filename maps key below root. Cleaning the rooted key strips any "..".
func (s *Store) filename(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+key)))
}

// Get reads the object stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	p := s.filename(key)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put writes the object atomically by renaming a temporary file into place.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	p := s.filename(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

// Ping checks that the root directory is accessible.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

var _ storage.ColdStore = (*Store)(nil)
