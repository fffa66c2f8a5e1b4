package repository

import (
	"context"
	"time"

	"relistapi/internal/model"
)

// LedgerRepository defines persistence for the per-account variation history.
// Rows are append-only; the only rewrite is Compact, which prunes entries past
// the retention horizon. Serializing check-then-append per account is the
// caller's job (service.Ledger); this layer only stores and queries.
type LedgerRepository interface {
	// HasText reports whether the exact text was already issued for the
	// original in this account's history.
	HasText(ctx context.Context, accountID, originalID string, kind model.TextKind, text string) (bool, error)

	// ListTexts returns every text issued for the original, oldest first.
	ListTexts(ctx context.Context, accountID, originalID string, kind model.TextKind) ([]string, error)

	// LastStrategy returns the strategy of the account's most recent text
	// variant of the given kind, or "" when the history is empty.
	LastStrategy(ctx context.Context, accountID string, kind model.TextKind) (model.TextStrategy, error)

	// AppendText records an issued text variant.
	AppendText(ctx context.Context, v *model.TextVariant) error

	// HasImageTuple reports whether a derivative with the same
	// (width, height, quality) was already issued for the source image.
	HasImageTuple(ctx context.Context, accountID, sourceSHA string, width, height, quality int) (bool, error)

	// AppendImage records an issued image derivative (parameters only, not bytes).
	AppendImage(ctx context.Context, accountID string, d *model.ImageDerivative) error

	// Compact removes ledger entries created before the cutoff.
	Compact(ctx context.Context, cutoff time.Time) (int64, error)
}
