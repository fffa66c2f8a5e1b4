package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"relistapi/internal/model"
	"relistapi/internal/repository"
	"relistapi/internal/storage"
)

var (
	ErrAccountRequired  = errors.New("account id is required")
	ErrTitleRequired    = errors.New("title is required")
	ErrIDRequired       = errors.New("id is required")
	ErrOriginalNotFound = errors.New("original not found")
)

// OriginalService defines the use cases for canonical listing content. An
// original is the single source of truth for a listing; every variant is
// derived from it, never from a previous variant.
type OriginalService interface {
	// Store persists the event's content as an original. Identical content
	// (same account, same content hash) returns the existing record; the
	// second return reports whether a new record was created.
	Store(ctx context.Context, event model.ListingEvent) (*model.Original, bool, error)

	// Get returns a single original by its ID.
	Get(ctx context.Context, id string) (*model.Original, error)

	// FindByTitle matches on a case- and whitespace-insensitive title
	// comparison within one account.
	FindByTitle(ctx context.Context, accountID, title string) (*model.Original, error)

	// LatestActive returns the account's most recently stored active original.
	LatestActive(ctx context.Context, accountID string) (*model.Original, error)

	// ListByAccount returns all of an account's originals, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]model.Original, error)

	// Archive marks an original as archived. Archived originals stay
	// retrievable by ID but no longer answer LatestActive lookups.
	Archive(ctx context.Context, id string) error

	// LoadImage fetches one canonical image's bytes from object storage and
	// verifies them against the recorded checksum.
	LoadImage(ctx context.Context, img model.OriginalImage) ([]byte, error)

	// ImageURL returns a time-limited download URL for one of an original's
	// canonical images, addressed by its SHA-256.
	ImageURL(ctx context.Context, originalID, sha string, expiry time.Duration) (string, error)

	// PurgeOlderThan removes originals stored before now-age together with
	// their blobs. Blobs still referenced by a surviving original are kept.
	// Variation history is kept; it guards future variants even after the
	// content is gone. Returns the number of originals removed.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int, error)
}

type originalService struct {
	store storage.Storage
	repo  repository.OriginalRepository
}

// NewOriginalService constructs a new OriginalService.
func NewOriginalService(store storage.Storage, repo repository.OriginalRepository) OriginalService {
	return &originalService{store: store, repo: repo}
}

func (s *originalService) Store(ctx context.Context, event model.ListingEvent) (*model.Original, bool, error) {
	if event.AccountID == "" {
		return nil, false, ErrAccountRequired
	}
	if strings.TrimSpace(event.Title) == "" {
		return nil, false, ErrTitleRequired
	}

	hash := contentHash(event)

	existing, err := s.repo.FindByContentHash(ctx, event.AccountID, hash)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("content hash lookup: %w", err)
	}

	images, uploaded, err := s.uploadImages(ctx, event.AccountID, event.Images)
	if err != nil {
		return nil, false, err
	}

	o := &model.Original{
		ID:          uuid.New().String(),
		AccountID:   event.AccountID,
		ContentHash: hash,
		Title:       strings.TrimSpace(event.Title),
		Description: event.Description,
		Images:      images,
		Status:      model.OriginalActive,
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := s.repo.Create(ctx, o)
	if err != nil {
		// Rollback only the blobs this call uploaded; shared blobs stay.
		for _, key := range uploaded {
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				return nil, false, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
			}
		}
		return nil, false, fmt.Errorf("db save failed: %w", err)
	}
	return stored, true, nil
}

// uploadImages stores each image under its content-addressed key. Blobs that
// already exist are not re-uploaded and are excluded from the rollback list.
func (s *originalService) uploadImages(ctx context.Context, accountID string, images [][]byte) ([]model.OriginalImage, []string, error) {
	var (
		records  []model.OriginalImage
		uploaded []string
	)
	for i, b := range images {
		sha := storage.HashBytes(b)
		key := storage.ImageKey(accountID, sha)

		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("check image %d: %w", i, err)
		}
		if !exists {
			if _, err := s.store.Put(ctx, key, bytes.NewReader(b), storage.PutObjectOptions{
				Size:        int64(len(b)),
				ContentType: "image/jpeg",
			}); err != nil {
				return nil, nil, fmt.Errorf("upload image %d: %w", i, err)
			}
			uploaded = append(uploaded, key)
		}

		records = append(records, model.OriginalImage{
			SHA256:      sha,
			StoragePath: key,
			Size:        int64(len(b)),
			Position:    i,
		})
	}
	return records, uploaded, nil
}

func (s *originalService) Get(ctx context.Context, id string) (*model.Original, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOriginalNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *originalService) FindByTitle(ctx context.Context, accountID, title string) (*model.Original, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	o, err := s.repo.FindByNormalizedTitle(ctx, accountID, title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOriginalNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *originalService) LatestActive(ctx context.Context, accountID string) (*model.Original, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	o, err := s.repo.LatestActive(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOriginalNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *originalService) ListByAccount(ctx context.Context, accountID string) ([]model.Original, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *originalService) Archive(ctx context.Context, id string) error {
	// Look the record up first so a missing ID fails loudly instead of
	// updating zero rows silently.
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, id, model.OriginalArchived)
}

func (s *originalService) ImageURL(ctx context.Context, originalID, sha string, expiry time.Duration) (string, error) {
	o, err := s.Get(ctx, originalID)
	if err != nil {
		return "", err
	}
	for _, img := range o.Images {
		if img.SHA256 == sha {
			return s.store.PresignGet(ctx, img.StoragePath, expiry)
		}
	}
	return "", fmt.Errorf("image %s: %w", sha, ErrOriginalNotFound)
}

// LoadImage streams one blob back and re-checks its digest, so a corrupted or
// swapped object can never feed the derivation pipeline.
func (s *originalService) LoadImage(ctx context.Context, img model.OriginalImage) ([]byte, error) {
	rc, _, err := s.store.Get(ctx, img.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", img.SHA256, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", img.SHA256, err)
	}
	if got := storage.HashBytes(b); got != img.SHA256 {
		return nil, fmt.Errorf("image %s failed checksum (got %s)", img.SHA256, got)
	}
	return b, nil
}

func (s *originalService) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)

	olds, err := s.repo.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list purgeable: %w", err)
	}

	purged := 0
	for i := range olds {
		o := &olds[i]
		// Blobs first; a failed blob delete keeps the DB row so nothing is orphaned.
		blobErr := false
		for _, img := range o.Images {
			// Blobs are content-addressed and can back several originals. One
			// stays on disk until the last row pointing at it is purged.
			refs, err := s.repo.CountImageRefs(ctx, img.StoragePath, o.ID)
			if err != nil {
				blobErr = true
				break
			}
			if refs > 0 {
				continue
			}
			if err := s.store.Delete(ctx, img.StoragePath); err != nil {
				blobErr = true
				break
			}
		}
		if blobErr {
			continue
		}
		if err := s.repo.Delete(ctx, o.ID); err != nil {
			return purged, fmt.Errorf("delete original %s: %w", o.ID, err)
		}
		purged++
	}
	return purged, nil
}

// contentHash derives the canonical identity of a listing's content: the
// normalized title, the exact description, and every image digest in order.
// Two events with the same hash are the same listing.
func contentHash(event model.ListingEvent) string {
	h := sha256.New()
	io.WriteString(h, normalizeTitle(event.Title))
	h.Write([]byte{0})
	io.WriteString(h, event.Description)
	for _, img := range event.Images {
		h.Write([]byte{0})
		io.WriteString(h, storage.HashBytes(img))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeTitle lowercases and collapses runs of whitespace, mirroring the
// repository's SQL-side normalization.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
