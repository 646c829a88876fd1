package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestResultRepo_InsertAndGetByID(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "a.png", "# Title\n\n")
	require.NoError(t, err)
	assert.Positive(t, inserted.ID)
	assert.Equal(t, testEpoch, inserted.CreatedAt)

	got, err := repo.GetByID(ctx, inserted.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inserted.ID, got.ID)
	assert.Equal(t, "a.png", got.ImageFilename)
	assert.Equal(t, "# Title\n\n", got.MarkdownText)
	assert.True(t, testEpoch.Equal(got.CreatedAt))
}

func TestResultRepo_IDsAreUnique(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)
	ctx := context.Background()

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		r, err := repo.Insert(ctx, "same.png", "text")
		require.NoError(t, err)
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
}

func TestResultRepo_GetByIDMissing(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)

	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultRepo_GetByFilename(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "one.png", "first")
	require.NoError(t, err)
	second, err := repo.Insert(ctx, "two.jpg", "second")
	require.NoError(t, err)

	got, err := repo.GetByFilename(ctx, "two.jpg")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "second", got.MarkdownText)

	missing, err := repo.GetByFilename(ctx, "three.gif")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResultRepo_ListAllNewestFirst(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)
	ctx := context.Background()

	empty, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	var ids []int64
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		r, err := repo.Insert(ctx, name, "text")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)
	assert.Equal(t, ids[0], all[2].ID)
	assert.Equal(t, "c.png", all[0].ImageFilename)
}

func TestResultRepo_ListAllSameTimestampFallsBackToID(t *testing.T) {
	repo := NewResultRepo(setupTestDB(t))
	repo.now = func() time.Time { return testEpoch }
	ctx := context.Background()

	first, err := repo.Insert(ctx, "a.png", "x")
	require.NoError(t, err)
	second, err := repo.Insert(ctx, "b.png", "y")
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestResultRepo_DeleteByID(t *testing.T) {
	repo := newTestResultRepo(t, testEpoch)
	ctx := context.Background()

	r, err := repo.Insert(ctx, "a.png", "text")
	require.NoError(t, err)

	deleted, err := repo.DeleteByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = repo.DeleteByID(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestResultRepo_InsertPropagatesDriverError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewResultRepo(&DB{Writer: mockDB, Reader: mockDB})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ocr_results")).
		WithArgs("a.png", "text", sqlmock.AnyArg()).
		WillReturnError(errors.New("database is locked"))

	_, err = repo.Insert(context.Background(), "a.png", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepo_ScanRejectsBadTimestamp(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewResultRepo(&DB{Writer: mockDB, Reader: mockDB})
	rows := sqlmock.NewRows([]string{"id", "image_filename", "markdown_text", "created_at"}).
		AddRow(1, "a.png", "text", "yesterday")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, image_filename, markdown_text, created_at FROM ocr_results WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	_, err = repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized time format")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T09:30:00.000000000Z", testEpoch},
		{"2024-03-01T09:30:00Z", testEpoch},
		{"2024-03-01 09:30:00", testEpoch},
		{"2024-03-01T09:30:00.123Z", testEpoch.Add(123 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestNewDB_CreatesDirectoryAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage", "app.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer, nil))
	require.NoError(t, RunMigrations(db.Writer, nil), "second run must be a no-op")
	require.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, path, db.Path())

	repo := NewResultRepo(db)
	r, err := repo.Insert(context.Background(), "a.png", "text")
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}
