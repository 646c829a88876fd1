// Package gcs stores source images as objects in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ImageStore = (*Store)(nil)

// Store is an ImageStore backed by one bucket. Every object key is
// prefix + name.
type Store struct {
	bucket *storage.BucketHandle
	prefix string
}

// New returns a Store writing to bucket under prefix. A non-empty prefix is
// normalised to end in a single slash.
func New(client *storage.Client, bucket, prefix string) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{bucket: client.Bucket(bucket), prefix: prefix}
}

// Save uploads data as the named object, replacing any existing one.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	key, err := s.objectName(name)
	if err != nil {
		return err
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = model.ContentTypeForFilename(name)
	w.CacheControl = "public, max-age=31536000"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

// Open streams the named object or returns driven.ErrImageNotFound.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.objectName(name)
	if err != nil {
		return nil, err
	}

	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", driven.ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return r, nil
}

// Exists reports whether the named object is present.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.objectName(name)
	if err != nil {
		return false, err
	}

	_, err = s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the named object. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.objectName(name)
	if err != nil {
		return err
	}

	err = s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *Store) objectName(name string) (string, error) {
	if !driven.ValidImageName(name) {
		return "", fmt.Errorf("%w: %q", driven.ErrInvalidImageName, name)
	}
	return s.prefix + name, nil
}
