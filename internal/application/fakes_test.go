package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing/iotest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- in-memory image store ---

type memImageStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
	readErr error // returned by readers from Open
}

func newMemImageStore() *memImageStore {
	return &memImageStore{files: make(map[string][]byte)}
}

func (m *memImageStore) Save(_ context.Context, name string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *memImageStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, driven.ErrImageNotFound
	}
	if m.readErr != nil {
		return io.NopCloser(iotest.ErrReader(m.readErr)), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memImageStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *memImageStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *memImageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// --- in-memory result store ---

type memResultStore struct {
	mu        sync.Mutex
	rows      []model.OCRResult
	nextID    int64
	insertErr error
}

func (m *memResultStore) Insert(_ context.Context, imageFilename, markdown string) (model.OCRResult, error) {
	if m.insertErr != nil {
		return model.OCRResult{}, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r := model.OCRResult{
		ID:            m.nextID,
		ImageFilename: imageFilename,
		MarkdownText:  markdown,
		CreatedAt:     time.Now().UTC(),
	}
	m.rows = append(m.rows, r)
	return r, nil
}

func (m *memResultStore) GetByID(_ context.Context, id int64) (*model.OCRResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			r := m.rows[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memResultStore) GetByFilename(_ context.Context, filename string) (*model.OCRResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ImageFilename == filename {
			r := m.rows[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memResultStore) ListAll(_ context.Context) ([]model.OCRResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.OCRResult(nil), m.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memResultStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memResultStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// --- scripted text detector ---

type stubDetector struct {
	text  string
	err   error
	calls int
}

func (s *stubDetector) DetectDocumentText(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

// --- image fixtures ---

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}
