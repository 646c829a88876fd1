// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// ResultStore defines the driven port for OCR result persistence. All
// operations touch a single row.
type ResultStore interface {
	// Insert appends a new result stamped with the current time and returns it
	// with its assigned ID.
	Insert(ctx context.Context, imageFilename, markdown string) (model.OCRResult, error)

	// GetByID returns (nil, nil) when no row has the given id.
	GetByID(ctx context.Context, id int64) (*model.OCRResult, error)

	// GetByFilename returns (nil, nil) when no row references the given image.
	GetByFilename(ctx context.Context, filename string) (*model.OCRResult, error)

	// ListAll returns every result, newest first.
	ListAll(ctx context.Context) ([]model.OCRResult, error)

	// DeleteByID removes the metadata row only and reports whether a row was
	// removed. The backing image is left in place.
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
