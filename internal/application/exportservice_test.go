package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = b
	}
	require.Len(t, entries, len(zr.File), "duplicate entry names")
	return entries
}

func newTestExportService(t *testing.T) (*ExportService, *memImageStore, *memResultStore) {
	t.Helper()
	images := newMemImageStore()
	results := &memResultStore{}
	svc := NewExportService(results, images, discardLogger())
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc, images, results
}

func TestExportService_Pack(t *testing.T) {
	svc, images, _ := newTestExportService(t)
	img := pngBytes(t)
	require.NoError(t, images.Save(context.Background(), "page.png", img))

	data, err := svc.Pack(context.Background(), "ocr-result-7.md", "# Title\n\nBody\n", "page.png")
	require.NoError(t, err)

	entries := readZip(t, data)
	require.Len(t, entries, 2)
	assert.Equal(t, "# Title\n\nBody\n", string(entries["ocr-result-7.md"]))
	assert.Equal(t, img, entries["page.png"])
}

func TestExportService_Pack_ImageReadFails(t *testing.T) {
	svc, images, _ := newTestExportService(t)
	require.NoError(t, images.Save(context.Background(), "page.png", pngBytes(t)))
	images.readErr = errors.New("disk read error")

	data, err := svc.Pack(context.Background(), "ocr-result-1.md", "text", "page.png")
	require.ErrorIs(t, err, ErrExport)
	assert.NotErrorIs(t, err, ErrStorage)
	assert.Nil(t, data)
}

func TestExportService_Pack_SourceMissing(t *testing.T) {
	svc, _, _ := newTestExportService(t)

	data, err := svc.Pack(context.Background(), "ocr-result-1.md", "text", "gone.png")
	require.ErrorIs(t, err, ErrSourceMissing)
	assert.Nil(t, data)
}

func TestExportService_ExportResult(t *testing.T) {
	ctx := context.Background()
	svc, images, results := newTestExportService(t)
	require.NoError(t, images.Save(ctx, "scan.jpg", jpegBytes(t)))
	row, err := results.Insert(ctx, "scan.jpg", "stored text\n")
	require.NoError(t, err)

	t.Run("stored markdown", func(t *testing.T) {
		archive, err := svc.ExportResult(ctx, row.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "textbook-ocr-1-1700000000123.zip", archive.Filename)

		entries := readZip(t, archive.Data)
		require.Len(t, entries, 2)
		assert.Equal(t, "stored text\n", string(entries["ocr-result-1.md"]))
		assert.Contains(t, entries, "scan.jpg")
	})

	t.Run("override markdown", func(t *testing.T) {
		archive, err := svc.ExportResult(ctx, row.ID, "edited by hand")
		require.NoError(t, err)

		entries := readZip(t, archive.Data)
		assert.Equal(t, "edited by hand", string(entries["ocr-result-1.md"]))
	})

	t.Run("unknown id", func(t *testing.T) {
		archive, err := svc.ExportResult(ctx, 999, "")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, archive)
	})

	t.Run("image deleted", func(t *testing.T) {
		require.NoError(t, images.Delete(ctx, "scan.jpg"))
		archive, err := svc.ExportResult(ctx, row.ID, "")
		require.ErrorIs(t, err, ErrSourceMissing)
		assert.Nil(t, archive)
	})
}
