package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"relistapi/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func originalRows(o *model.Original) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "content_hash", "title", "description", "status", "created_at"}).
		AddRow(o.ID, o.AccountID, o.ContentHash, o.Title, o.Description, o.Status, o.CreatedAt)
}

func emptyImageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"sha256", "storage_path", "size", "position"})
}

func TestOriginalPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	o := &model.Original{
		ID:          "test-uuid",
		AccountID:   "acct-1",
		ContentHash: "abc123",
		Title:       "40mm artificial grass rolls",
		Description: "Fast delivery",
		Status:      model.OriginalActive,
		CreatedAt:   now,
		Images: []model.OriginalImage{
			{SHA256: "imghash", StoragePath: "originals/acct-1/imghash.jpg", Size: 100, Position: 0},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO originals").
		WithArgs(o.ID, o.AccountID, o.ContentHash, o.Title, o.Description, o.Status, o.CreatedAt).
		WillReturnRows(originalRows(o))
	mock.ExpectExec("INSERT INTO original_images").
		WithArgs(o.ID, "imghash", "originals/acct-1/imghash.jpg", int64(100), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Create(ctx, o)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, o.ID, result.ID)
	assert.Len(t, result.Images, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOriginalPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		o := &model.Original{ID: "test-id", AccountID: "acct-1", ContentHash: "h", Title: "t", Description: "d", Status: model.OriginalActive, CreatedAt: time.Now()}

		mock.ExpectQuery("SELECT (.+) FROM originals WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(originalRows(o))
		mock.ExpectQuery("SELECT (.+) FROM original_images").
			WithArgs("test-id").
			WillReturnRows(emptyImageRows().AddRow("imghash", "path", 100, 0))

		got, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, "test-id", got.ID)
		assert.Len(t, got.Images, 1)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM originals WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "missing")

		assert.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})
}

func TestOriginalPostgres_FindByContentHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	o := &model.Original{ID: "id-1", AccountID: "acct-1", ContentHash: "hash-1", Title: "t", Description: "d", Status: model.OriginalActive, CreatedAt: time.Now()}

	mock.ExpectQuery("SELECT (.+) FROM originals WHERE account_id = (.+) AND content_hash = ?").
		WithArgs("acct-1", "hash-1").
		WillReturnRows(originalRows(o))
	mock.ExpectQuery("SELECT (.+) FROM original_images").
		WithArgs("id-1").
		WillReturnRows(emptyImageRows())

	got, err := repo.FindByContentHash(ctx, "acct-1", "hash-1")

	assert.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
}

func TestOriginalPostgres_ListOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	o := &model.Original{ID: "old-id", AccountID: "acct-1", ContentHash: "h", Title: "t", Description: "d", Status: model.OriginalActive, CreatedAt: cutoff.Add(-time.Hour)}

	mock.ExpectQuery("SELECT (.+) FROM originals WHERE created_at < ?").
		WithArgs(cutoff).
		WillReturnRows(originalRows(o))
	mock.ExpectQuery("SELECT (.+) FROM original_images").
		WithArgs("old-id").
		WillReturnRows(emptyImageRows())

	items, err := repo.ListOlderThan(ctx, cutoff)

	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "old-id", items[0].ID)
}

func TestOriginalPostgres_CountImageRefs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT(.+) FROM original_images WHERE storage_path = (.+) AND original_id <> ?").
		WithArgs("originals/acct-1/shared.jpg", "old-id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountImageRefs(ctx, "originals/acct-1/shared.jpg", "old-id")

	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOriginalPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM originals WHERE id = ?").
		WithArgs("test-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, "test-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOriginalPostgres_LatestActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	o := &model.Original{ID: "newest", AccountID: "acct-1", ContentHash: "h", Title: "t", Description: "d", Status: model.OriginalActive, CreatedAt: time.Now()}

	mock.ExpectQuery("SELECT (.+) FROM originals WHERE account_id = (.+) AND status = 'active'").
		WithArgs("acct-1").
		WillReturnRows(originalRows(o))
	mock.ExpectQuery("SELECT (.+) FROM original_images").
		WithArgs("newest").
		WillReturnRows(emptyImageRows())

	got, err := repo.LatestActive(ctx, "acct-1")

	assert.NoError(t, err)
	assert.Equal(t, "newest", got.ID)
}

func TestOriginalPostgres_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOriginalPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE originals SET status").
		WithArgs("test-id", model.OriginalArchived).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateStatus(ctx, "test-id", model.OriginalArchived)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
