package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relistapi/internal/imggen"
	"relistapi/internal/metrics"
	"relistapi/internal/model"
	"relistapi/internal/storage"
	"relistapi/internal/textgen"
)

// ErrNoUsableImages means every image in the original failed derivation; the
// caller gets no bundle because a listing without photos cannot be posted.
var ErrNoUsableImages = errors.New("no usable images")

// Orchestrator drives one relist end to end: resolve the original, issue a
// fresh title and description against the ledger, and derive one unique
// variant per canonical image. Failures of individual images degrade the
// bundle; failures of text generation fail it.
type Orchestrator interface {
	// Process stores the event's content (idempotently) and produces the
	// first variant bundle for it.
	Process(ctx context.Context, event model.ListingEvent) (*model.VariantBundle, error)

	// Relist produces a fresh variant bundle for an already-stored original.
	Relist(ctx context.Context, originalID string) (*model.VariantBundle, error)

	// Maintain runs the retention pass: purge expired originals and compact
	// the ledger. Returns originals purged and ledger rows removed.
	Maintain(ctx context.Context) (int, int64, error)
}

type orchestrator struct {
	originals OriginalService
	ledger    LedgerService
	texts     *textgen.Engine
	images    *imggen.Pipeline
	metrics   *metrics.VariationMetrics
	retention time.Duration
}

// NewOrchestrator constructs an Orchestrator. vm may be nil when the metrics
// registry is not wired, e.g. in tests.
func NewOrchestrator(originals OriginalService, ledger LedgerService, texts *textgen.Engine, images *imggen.Pipeline, vm *metrics.VariationMetrics, retention time.Duration) Orchestrator {
	return &orchestrator{
		originals: originals,
		ledger:    ledger,
		texts:     texts,
		images:    images,
		metrics:   vm,
		retention: retention,
	}
}

func (o *orchestrator) Process(ctx context.Context, event model.ListingEvent) (*model.VariantBundle, error) {
	original, created, err := o.originals.Store(ctx, event)
	if err != nil {
		return nil, err
	}

	logJSON(map[string]any{
		"component":   "orchestrator",
		"msg":         "original resolved",
		"original_id": original.ID,
		"account_id":  original.AccountID,
		"created":     created,
	})

	return o.bundle(ctx, original)
}

func (o *orchestrator) Relist(ctx context.Context, originalID string) (*model.VariantBundle, error) {
	original, err := o.originals.Get(ctx, originalID)
	if err != nil {
		return nil, err
	}
	return o.bundle(ctx, original)
}

// bundle assembles one variant bundle from an original. Text first: a listing
// with no fresh text must not consume image history entries.
func (o *orchestrator) bundle(ctx context.Context, original *model.Original) (*model.VariantBundle, error) {
	title, err := o.ledger.IssueText(ctx, original.AccountID, original.ID, model.TextTitle, func(hist textgen.History) (textgen.Candidate, error) {
		return o.texts.GenerateTitle(ctx, original.Title, hist)
	})
	if err != nil {
		return nil, fmt.Errorf("title variant: %w", err)
	}
	o.metrics.RecordText(string(model.TextTitle), string(title.Strategy))

	description, err := o.ledger.IssueText(ctx, original.AccountID, original.ID, model.TextDescription, func(hist textgen.History) (textgen.Candidate, error) {
		return o.texts.GenerateDescription(ctx, original.Description, hist)
	})
	if err != nil {
		return nil, fmt.Errorf("description variant: %w", err)
	}
	o.metrics.RecordText(string(model.TextDescription), string(description.Strategy))

	derivatives, skipped, err := o.deriveImages(ctx, original)
	if err != nil {
		return nil, err
	}

	return &model.VariantBundle{
		OriginalID:  original.ID,
		Title:       title,
		Description: description,
		Images:      derivatives,
		Skipped:     skipped,
	}, nil
}

// deriveImages produces one variant per canonical image. An image that cannot
// be loaded, decoded, or made unique is skipped and counted; the batch only
// fails when nothing at all could be derived.
func (o *orchestrator) deriveImages(ctx context.Context, original *model.Original) ([]model.ImageDerivative, int, error) {
	var (
		out     []model.ImageDerivative
		skipped int
	)

	for _, img := range original.Images {
		src, err := o.originals.LoadImage(ctx, img)
		if err != nil {
			o.skipImage(original, img.SHA256, err)
			o.metrics.RecordSkip()
			skipped++
			continue
		}

		d, err := o.deriveOne(ctx, original.AccountID, src)
		if err != nil {
			if errors.Is(err, imggen.ErrDecode) || errors.Is(err, imggen.ErrExhausted) {
				o.skipImage(original, img.SHA256, err)
				o.metrics.RecordSkip()
				skipped++
				continue
			}
			return nil, 0, fmt.Errorf("derive image %s: %w", img.SHA256, err)
		}
		o.metrics.RecordImage()
		out = append(out, *d)
	}

	if len(original.Images) > 0 && len(out) == 0 {
		return nil, skipped, ErrNoUsableImages
	}
	return out, skipped, nil
}

// deriveOne runs the pipeline under the account lock so the tuple check and
// the history append are one atomic step from any other relist's view.
func (o *orchestrator) deriveOne(ctx context.Context, accountID string, src []byte) (*model.ImageDerivative, error) {
	o.ledger.Lock(accountID)
	defer o.ledger.Unlock(accountID)

	d, err := o.images.Derive(ctx, src, o.ledger.SeenImageTuple(ctx, accountID, storage.HashBytes(src)))
	if err != nil {
		return nil, err
	}
	if err := o.ledger.RecordImage(ctx, accountID, d); err != nil {
		return nil, fmt.Errorf("record image tuple: %w", err)
	}
	return d, nil
}

func (o *orchestrator) skipImage(original *model.Original, sha string, err error) {
	logJSON(map[string]any{
		"level":       "warn",
		"component":   "orchestrator",
		"msg":         "image skipped",
		"original_id": original.ID,
		"account_id":  original.AccountID,
		"sha256":      sha,
		"error":       err.Error(),
	})
}

func (o *orchestrator) Maintain(ctx context.Context) (int, int64, error) {
	purged, err := o.originals.PurgeOlderThan(ctx, o.retention)
	if err != nil {
		return 0, 0, fmt.Errorf("purge originals: %w", err)
	}

	compacted, err := o.ledger.Compact(ctx, time.Now().UTC().Add(-o.retention))
	if err != nil {
		return purged, 0, fmt.Errorf("compact ledger: %w", err)
	}

	logJSON(map[string]any{
		"component": "orchestrator",
		"msg":       "maintenance pass complete",
		"purged":    purged,
		"compacted": compacted,
	})
	return purged, compacted, nil
}
