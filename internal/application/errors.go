// Package application contains use-case orchestration services.
package application

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by application services. The HTTP adapter maps
// each to exactly one status code and user-facing message.
var (
	// ErrInvalidFormat indicates the payload is not a supported raster image
	// (PNG, JPEG, GIF or WebP) or could not be decoded.
	ErrInvalidFormat = errors.New("unsupported or malformed image")

	// ErrTooLarge indicates the encoded image is at or over the size ceiling.
	ErrTooLarge = errors.New("image too large")

	// ErrNoTextDetected indicates the OCR provider found no text in the image.
	ErrNoTextDetected = errors.New("no text detected")

	// ErrOracleUnavailable covers every failure of the external OCR provider,
	// including a missing configuration.
	ErrOracleUnavailable = errors.New("ocr provider unavailable")

	// ErrOracleAuth refines ErrOracleUnavailable for rejected provider credentials.
	ErrOracleAuth = fmt.Errorf("%w: credentials rejected", ErrOracleUnavailable)

	// ErrOracleQuota refines ErrOracleUnavailable for provider quota exhaustion.
	ErrOracleQuota = fmt.Errorf("%w: quota exceeded", ErrOracleUnavailable)

	// ErrStorage indicates a disk or database failure.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound indicates the requested result does not exist.
	ErrNotFound = errors.New("result not found")

	// ErrExport indicates the export archive could not be assembled.
	ErrExport = errors.New("export archive failed")

	// ErrSourceMissing indicates a result's backing image is gone from storage.
	ErrSourceMissing = errors.New("source image missing")
)
