// Package imagefs stores source images as flat files in a local directory.
package imagefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ImageStore = (*Store)(nil)

// Store is a directory-backed ImageStore. Names are validated with
// driven.ValidImageName so no key can resolve outside dir.
type Store struct {
	dir string
}

// New creates dir if necessary and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under name. The file is written to a temporary name and
// renamed into place so readers never observe a partial image.
func (s *Store) Save(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Open returns a reader for the named image or driven.ErrImageNotFound.
func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", driven.ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Exists reports whether the named image is present.
func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, nil
}

// Delete removes the named image. Missing images are ignored.
func (s *Store) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if !driven.ValidImageName(name) {
		return "", fmt.Errorf("%w: %q", driven.ErrInvalidImageName, name)
	}
	return filepath.Join(s.dir, name), nil
}
