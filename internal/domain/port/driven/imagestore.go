package driven

import (
	"context"
	"errors"
	"io"
	"regexp"
)

// ErrImageNotFound is returned by ImageStore implementations when the named
// image does not exist.
var ErrImageNotFound = errors.New("image not found")

// ErrInvalidImageName is returned when a name could escape the store's
// namespace (path separators, dot segments, unexpected characters).
var ErrInvalidImageName = errors.New("invalid image name")

var imageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*\.[A-Za-z0-9]{2,5}$`)

// ValidImageName reports whether name is safe to use as a flat storage key.
func ValidImageName(name string) bool {
	return imageNamePattern.MatchString(name)
}

// ImageStore defines the driven port for durable storage of source images.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) error
	// Open returns ErrImageNotFound when the image is missing.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Delete is a no-op for missing images.
	Delete(ctx context.Context, name string) error
}
