package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// ProcessResult is the outcome of a successful OCR submission.
type ProcessResult struct {
	ResultID      int64
	Markdown      string
	ImageFilename string
	CreatedAt     time.Time
}

// OCRService is the OCR gateway: it validates an image, stores it, sends it
// to the text detector, formats the recognized text and records the result.
type OCRService struct {
	images        driven.ImageStore
	results       driven.ResultStore
	detector      driven.TextDetector
	maxImageBytes int
	newName       func(model.ImageFormat) string
	logger        *slog.Logger
}

// NewOCRService creates an OCRService. detector may be nil when no OCR
// provider is configured; Process then fails with ErrOracleUnavailable.
// maxImageBytes <= 0 selects DefaultMaxImageBytes.
func NewOCRService(
	images driven.ImageStore,
	results driven.ResultStore,
	detector driven.TextDetector,
	maxImageBytes int,
	logger *slog.Logger,
) *OCRService {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &OCRService{
		images:        images,
		results:       results,
		detector:      detector,
		maxImageBytes: maxImageBytes,
		newName: func(f model.ImageFormat) string {
			return uuid.NewString() + "." + f.Extension()
		},
		logger: logger,
	}
}

// MaxImageBytes returns the encoded-size ceiling enforced by Process.
func (s *OCRService) MaxImageBytes() int {
	return s.maxImageBytes
}

// Process runs one OCR submission end to end. The image is written before
// the provider is called and is not removed if a later step fails. A result
// row exists if and only if Process returns a nil error.
func (s *OCRService) Process(ctx context.Context, image []byte) (*ProcessResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFormat)
	}
	if len(image) >= s.maxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(image), s.maxImageBytes)
	}

	format, err := DetectImageFormat(image)
	if err != nil {
		return nil, err
	}

	if s.detector == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrOracleUnavailable)
	}

	filename := s.newName(format)
	if err := s.images.Save(ctx, filename, image); err != nil {
		return nil, fmt.Errorf("%w: save image %s: %w", ErrStorage, filename, err)
	}

	text, err := s.detector.DetectDocumentText(ctx, image)
	if err != nil {
		return nil, classifyDetectorError(err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTextDetected, filename)
	}

	markdown := FormatMarkdown(text)

	result, err := s.results.Insert(ctx, filename, markdown)
	if err != nil {
		return nil, fmt.Errorf("%w: insert result for %s: %w", ErrStorage, filename, err)
	}

	s.logger.Info("ocr result stored",
		"id", result.ID,
		"image", filename,
		"format", format,
		"image_bytes", len(image),
		"text_bytes", len(text),
	)

	return &ProcessResult{
		ResultID:      result.ID,
		Markdown:      markdown,
		ImageFilename: filename,
		CreatedAt:     result.CreatedAt,
	}, nil
}

// classifyDetectorError maps a TextDetector failure onto the gateway's
// oracle error family, keeping the cause in the chain for logging.
func classifyDetectorError(err error) error {
	switch {
	case errors.Is(err, driven.ErrDetectorAuth):
		return fmt.Errorf("%w: %w", ErrOracleAuth, err)
	case errors.Is(err, driven.ErrDetectorQuota):
		return fmt.Errorf("%w: %w", ErrOracleQuota, err)
	default:
		return fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
}
