package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relistapi/internal/model"
	"relistapi/internal/repository"
)

// OriginalPostgres is a PostgreSQL implementation of repository.OriginalRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type OriginalPostgres struct {
	db *sql.DB
}

// NewOriginalPostgres creates a new OriginalPostgres repository.
func NewOriginalPostgres(db *sql.DB) *OriginalPostgres {
	return &OriginalPostgres{db: db}
}

var _ repository.OriginalRepository = (*OriginalPostgres)(nil)

const originalColumns = `id, account_id, content_hash, title, description, status, created_at`

// Create inserts the original row and its image rows in one transaction.
func (r *OriginalPostgres) Create(ctx context.Context, o *model.Original) (*model.Original, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO originals (id, account_id, content_hash, title, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + originalColumns
	row := tx.QueryRowContext(ctx, q,
		o.ID,
		o.AccountID,
		o.ContentHash,
		o.Title,
		o.Description,
		o.Status,
		o.CreatedAt,
	)
	var out model.Original
	if err := row.Scan(
		&out.ID,
		&out.AccountID,
		&out.ContentHash,
		&out.Title,
		&out.Description,
		&out.Status,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}

	const qImg = `
		INSERT INTO original_images (original_id, sha256, storage_path, size, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, img := range o.Images {
		if _, err := tx.ExecContext(ctx, qImg, out.ID, img.SHA256, img.StoragePath, img.Size, img.Position); err != nil {
			return nil, fmt.Errorf("insert image row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out.Images = o.Images
	return &out, nil
}

// FindByID fetches a single original by its ID, images included.
func (r *OriginalPostgres) FindByID(ctx context.Context, id string) (*model.Original, error) {
	const q = `SELECT ` + originalColumns + ` FROM originals WHERE id = $1`
	return r.findOne(ctx, q, id)
}

// FindByContentHash fetches the account's original with the given hash.
func (r *OriginalPostgres) FindByContentHash(ctx context.Context, accountID, contentHash string) (*model.Original, error) {
	const q = `SELECT ` + originalColumns + ` FROM originals WHERE account_id = $1 AND content_hash = $2`
	return r.findOne(ctx, q, accountID, contentHash)
}

// FindByNormalizedTitle matches case-insensitively with collapsed whitespace.
func (r *OriginalPostgres) FindByNormalizedTitle(ctx context.Context, accountID, title string) (*model.Original, error) {
	const q = `
		SELECT ` + originalColumns + `
		FROM originals
		WHERE account_id = $1
		  AND lower(regexp_replace(btrim(title), '\s+', ' ', 'g')) = lower(regexp_replace(btrim($2), '\s+', ' ', 'g'))
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findOne(ctx, q, accountID, title)
}

// LatestActive returns the newest active original for the account.
func (r *OriginalPostgres) LatestActive(ctx context.Context, accountID string) (*model.Original, error) {
	const q = `
		SELECT ` + originalColumns + `
		FROM originals
		WHERE account_id = $1 AND status = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.findOne(ctx, q, accountID)
}

// ListByAccount returns all originals for an account, newest first.
func (r *OriginalPostgres) ListByAccount(ctx context.Context, accountID string) ([]model.Original, error) {
	const q = `
		SELECT ` + originalColumns + `
		FROM originals
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, q, accountID)
}

// ListOlderThan returns originals created before the cutoff.
func (r *OriginalPostgres) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.Original, error) {
	const q = `
		SELECT ` + originalColumns + `
		FROM originals
		WHERE created_at < $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, q, cutoff)
}

// CountImageRefs counts image rows outside the given original that share the
// storage path.
func (r *OriginalPostgres) CountImageRefs(ctx context.Context, storagePath, excludeOriginalID string) (int, error) {
	const q = `SELECT COUNT(*) FROM original_images WHERE storage_path = $1 AND original_id <> $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, storagePath, excludeOriginalID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes an original by ID. Image rows cascade. It does not return an
// error if the row does not exist.
func (r *OriginalPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM originals WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// UpdateStatus sets the lifecycle status of an original.
func (r *OriginalPostgres) UpdateStatus(ctx context.Context, id string, status model.OriginalStatus) error {
	const q = `UPDATE originals SET status = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, status)
	return err
}

func (r *OriginalPostgres) findOne(ctx context.Context, q string, args ...any) (*model.Original, error) {
	row := r.db.QueryRowContext(ctx, q, args...)
	var o model.Original
	if err := row.Scan(
		&o.ID,
		&o.AccountID,
		&o.ContentHash,
		&o.Title,
		&o.Description,
		&o.Status,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := r.loadImages(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OriginalPostgres) list(ctx context.Context, q string, args ...any) ([]model.Original, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Original, 0)
	for rows.Next() {
		var o model.Original
		if err := rows.Scan(
			&o.ID,
			&o.AccountID,
			&o.ContentHash,
			&o.Title,
			&o.Description,
			&o.Status,
			&o.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		if err := r.loadImages(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *OriginalPostgres) loadImages(ctx context.Context, o *model.Original) error {
	const q = `
		SELECT sha256, storage_path, size, position
		FROM original_images
		WHERE original_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var img model.OriginalImage
		if err := rows.Scan(&img.SHA256, &img.StoragePath, &img.Size, &img.Position); err != nil {
			return err
		}
		o.Images = append(o.Images, img)
	}
	return rows.Err()
}
