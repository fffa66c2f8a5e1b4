package repository

import (
	"context"
	"time"

	"relistapi/internal/model"
)

// OriginalRepository defines data access for canonical listing records.
type OriginalRepository interface {
	// Create inserts a new original record together with its image rows.
	// Returns the stored record (may include values set by the DB).
	Create(ctx context.Context, o *model.Original) (*model.Original, error)

	// FindByID returns an original by its ID, images included.
	FindByID(ctx context.Context, id string) (*model.Original, error)

	// FindByContentHash returns the account's original with the given content
	// hash, if any. Used for idempotent stores.
	FindByContentHash(ctx context.Context, accountID, contentHash string) (*model.Original, error)

	// FindByNormalizedTitle matches on a case- and whitespace-insensitive
	// title comparison. No semantic matching.
	FindByNormalizedTitle(ctx context.Context, accountID, title string) (*model.Original, error)

	// LatestActive returns the account's most recently created active original.
	LatestActive(ctx context.Context, accountID string) (*model.Original, error)

	// ListByAccount returns all originals for an account, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]model.Original, error)

	// ListOlderThan returns originals created before the cutoff, images
	// included, so the caller can also remove their blobs.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.Original, error)

	// CountImageRefs returns how many image rows of other originals point at
	// the same storage path. Blobs are content-addressed and shared across
	// originals, so purge must keep a blob while any other row references it.
	CountImageRefs(ctx context.Context, storagePath, excludeOriginalID string) (int, error)

	// Delete removes an original and its image rows. Returns nil if the row
	// did not exist.
	Delete(ctx context.Context, id string) error

	// UpdateStatus sets the lifecycle status of an original.
	UpdateStatus(ctx context.Context, id string, status model.OriginalStatus) error
}
