package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Archive is a finished export bundle ready to be sent to the client.
type Archive struct {
	Filename string
	Data     []byte
}

// ExportService packages a Markdown document and its source image into a
// zip archive.
type ExportService struct {
	results driven.ResultStore
	images  driven.ImageStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewExportService creates an ExportService backed by the given stores.
func NewExportService(results driven.ResultStore, images driven.ImageStore, logger *slog.Logger) *ExportService {
	return &ExportService{
		results: results,
		images:  images,
		now:     time.Now,
		logger:  logger,
	}
}

// ExportResult bundles result id with its image. A non-empty markdown
// replaces the stored text, which lets the operator export edits that were
// never saved server-side.
func (s *ExportService) ExportResult(ctx context.Context, id int64, markdown string) (*Archive, error) {
	result, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load result %d: %w", ErrStorage, id, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	if markdown == "" {
		markdown = result.MarkdownText
	}

	data, err := s.Pack(ctx, fmt.Sprintf("ocr-result-%d.md", id), markdown, result.ImageFilename)
	if err != nil {
		return nil, err
	}

	archive := &Archive{
		Filename: fmt.Sprintf("textbook-ocr-%d-%d.zip", id, s.now().UnixMilli()),
		Data:     data,
	}
	s.logger.Info("export archive built", "id", id, "filename", archive.Filename, "bytes", len(data))
	return archive, nil
}

// Pack builds a zip holding exactly two entries: the Markdown text under
// markdownName and the stored image under imageFilename. The archive is
// assembled in memory, so a failure never yields partial bytes.
func (s *ExportService) Pack(ctx context.Context, markdownName, markdown, imageFilename string) ([]byte, error) {
	img, err := s.images.Open(ctx, imageFilename)
	if errors.Is(err, driven.ErrImageNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, imageFilename)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open image %s: %w", ErrStorage, imageFilename, err)
	}
	defer img.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	modified := s.now()

	if err := writeZipEntry(zw, markdownName, modified, bytes.NewReader([]byte(markdown))); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := writeZipEntry(zw, imageFilename, modified, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize archive: %w", ErrExport, err)
	}

	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, modified time.Time, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
