package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ResultStore = (*ResultRepo)(nil)

// createdAtLayout keeps a fixed fraction width so stored timestamps sort
// lexically in time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// ResultRepo is the SQLite implementation of the ResultStore port interface.
type ResultRepo struct {
	db  *DB
	now func() time.Time
}

// NewResultRepo creates a new ResultRepo backed by the given DB.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db, now: time.Now}
}

// Insert records a new OCR result and returns it with its assigned ID.
func (r *ResultRepo) Insert(ctx context.Context, imageFilename, markdown string) (model.OCRResult, error) {
	createdAt := r.now().UTC()

	const query = `INSERT INTO ocr_results (image_filename, markdown_text, created_at) VALUES (?, ?, ?)`
	res, err := r.db.Writer.ExecContext(ctx, query, imageFilename, markdown, createdAt.Format(createdAtLayout))
	if err != nil {
		return model.OCRResult{}, fmt.Errorf("insert ocr result for %s: %w", imageFilename, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.OCRResult{}, fmt.Errorf("last insert id for %s: %w", imageFilename, err)
	}

	return model.OCRResult{
		ID:            id,
		ImageFilename: imageFilename,
		MarkdownText:  markdown,
		CreatedAt:     createdAt,
	}, nil
}

// GetByID retrieves a result by id. Returns (nil, nil) if not found.
func (r *ResultRepo) GetByID(ctx context.Context, id int64) (*model.OCRResult, error) {
	const query = `SELECT id, image_filename, markdown_text, created_at FROM ocr_results WHERE id = ?`
	result, err := r.scanOne(r.db.Reader.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get ocr result %d: %w", id, err)
	}
	return result, nil
}

// GetByFilename retrieves the most recent result that references filename.
// Returns (nil, nil) if not found.
func (r *ResultRepo) GetByFilename(ctx context.Context, filename string) (*model.OCRResult, error) {
	const query = `SELECT id, image_filename, markdown_text, created_at FROM ocr_results
		WHERE image_filename = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	result, err := r.scanOne(r.db.Reader.QueryRowContext(ctx, query, filename))
	if err != nil {
		return nil, fmt.Errorf("get ocr result for %s: %w", filename, err)
	}
	return result, nil
}

// ListAll returns every result, newest first.
func (r *ResultRepo) ListAll(ctx context.Context) ([]model.OCRResult, error) {
	const query = `SELECT id, image_filename, markdown_text, created_at FROM ocr_results
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ocr results: %w", err)
	}
	defer rows.Close()

	results := []model.OCRResult{}
	for rows.Next() {
		var (
			result    model.OCRResult
			createdAt string
		)
		if err := rows.Scan(&result.ID, &result.ImageFilename, &result.MarkdownText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ocr result: %w", err)
		}
		result.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for result %d: %w", result.ID, err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ocr results: %w", err)
	}

	return results, nil
}

// DeleteByID removes the row with the given id and reports whether one
// existed. The referenced image file is not touched.
func (r *ResultRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM ocr_results WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete ocr result %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for delete %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *ResultRepo) scanOne(row *sql.Row) (*model.OCRResult, error) {
	var (
		result    model.OCRResult
		createdAt string
	)
	err := row.Scan(&result.ID, &result.ImageFilename, &result.MarkdownText, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &result, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
