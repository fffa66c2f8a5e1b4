package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"relistapi/internal/model"
	"relistapi/internal/repository"
)

// LedgerPostgres is a PostgreSQL implementation of repository.LedgerRepository.
// Text and image variants share the retention horizon but live in separate
// tables; compaction prunes both.
type LedgerPostgres struct {
	db *sql.DB
}

// NewLedgerPostgres creates a new LedgerPostgres repository.
func NewLedgerPostgres(db *sql.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

var _ repository.LedgerRepository = (*LedgerPostgres)(nil)

// HasText reports whether the exact text was already issued.
func (r *LedgerPostgres) HasText(ctx context.Context, accountID, originalID string, kind model.TextKind, text string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM text_variants
			WHERE account_id = $1 AND original_id = $2 AND kind = $3 AND text = $4
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, accountID, originalID, kind, text).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListTexts returns every issued text for the original, oldest first.
func (r *LedgerPostgres) ListTexts(ctx context.Context, accountID, originalID string, kind model.TextKind) ([]string, error) {
	const q = `
		SELECT text FROM text_variants
		WHERE account_id = $1 AND original_id = $2 AND kind = $3
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, accountID, originalID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	texts := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// LastStrategy returns the most recent strategy used for the account and kind,
// or "" when the history is empty.
func (r *LedgerPostgres) LastStrategy(ctx context.Context, accountID string, kind model.TextKind) (model.TextStrategy, error) {
	const q = `
		SELECT strategy FROM text_variants
		WHERE account_id = $1 AND kind = $2
		ORDER BY id DESC
		LIMIT 1
	`
	var s model.TextStrategy
	err := r.db.QueryRowContext(ctx, q, accountID, kind).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

// AppendText records an issued text variant.
func (r *LedgerPostgres) AppendText(ctx context.Context, v *model.TextVariant) error {
	const q = `
		INSERT INTO text_variants (account_id, original_id, kind, text, strategy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, v.AccountID, v.OriginalID, v.Kind, v.Text, v.Strategy, v.CreatedAt)
	return err
}

// HasImageTuple reports whether the (width, height, quality) tuple was already
// issued for the source image.
func (r *LedgerPostgres) HasImageTuple(ctx context.Context, accountID, sourceSHA string, width, height, quality int) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM image_derivatives
			WHERE account_id = $1 AND source_sha256 = $2 AND width = $3 AND height = $4 AND quality = $5
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, accountID, sourceSHA, width, height, quality).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AppendImage records the parameters of an issued derivative. The bytes are
// not persisted here; the ledger is an audit trail, not a blob store.
func (r *LedgerPostgres) AppendImage(ctx context.Context, accountID string, d *model.ImageDerivative) error {
	transform, err := json.Marshal(d.Transform)
	if err != nil {
		return fmt.Errorf("marshal transform: %w", err)
	}
	const q = `
		INSERT INTO image_derivatives (account_id, source_sha256, width, height, quality, transform, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, q, accountID, d.SourceSHA256, d.Width, d.Height, d.Transform.Quality, transform, d.CreatedAt)
	return err
}

// Compact removes ledger entries created before the cutoff and returns the
// number of rows pruned across both tables.
func (r *LedgerPostgres) Compact(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64

	res, err := r.db.ExecContext(ctx, `DELETE FROM text_variants WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil {
		pruned += n
	}

	res, err = r.db.ExecContext(ctx, `DELETE FROM image_derivatives WHERE created_at < $1`, cutoff)
	if err != nil {
		return pruned, err
	}
	if n, err := res.RowsAffected(); err == nil {
		pruned += n
	}
	return pruned, nil
}
