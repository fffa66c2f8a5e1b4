package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"relistapi/internal/model"
	"relistapi/internal/repository"
	"relistapi/internal/textgen"
)

// LedgerService serializes all history reads and appends for one account, so
// two concurrent relists can never both pass the uniqueness check with the
// same candidate. Different accounts proceed in parallel.
type LedgerService interface {
	// IssueText reads the account's text history, runs gen against it, and
	// records the produced candidate, all under the account's lock. The
	// candidate is re-checked against the stored history right before the
	// append, so a text issued by another process since the history read is
	// still rejected. A broken history read degrades to an empty history
	// with a warning instead of blocking the listing.
	IssueText(ctx context.Context, accountID, originalID string, kind model.TextKind, gen TextGenFunc) (model.TextVariant, error)

	// SeenImageTuple builds the uniqueness check the image pipeline consults
	// before committing a parameter draw. A broken history read degrades to
	// "not seen" with a warning.
	SeenImageTuple(ctx context.Context, accountID, sourceSHA string) func(width, height, quality int) (bool, error)

	// RecordImage appends a committed derivative to the account's image
	// history, under the account's lock.
	RecordImage(ctx context.Context, accountID string, d *model.ImageDerivative) error

	// Lock and Unlock expose the per-account mutex so a caller can hold it
	// across a check-then-record sequence spanning multiple calls.
	Lock(accountID string)
	Unlock(accountID string)

	// Compact removes ledger entries older than the cutoff from both the text
	// and image histories. Returns the number of rows removed.
	Compact(ctx context.Context, cutoff time.Time) (int64, error)
}

// TextGenFunc produces a candidate given the account's issue history. The
// ledger service supplies the history; the caller supplies the engine.
type TextGenFunc func(hist textgen.History) (textgen.Candidate, error)

type ledgerService struct {
	repo repository.LedgerRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService constructs a new LedgerService.
func NewLedgerService(repo repository.LedgerRepository) LedgerService {
	return &ledgerService{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex for one account, creating it on first use.
// Locks are never evicted; the per-account footprint is one mutex.
func (s *ledgerService) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

func (s *ledgerService) Lock(accountID string)   { s.accountLock(accountID).Lock() }
func (s *ledgerService) Unlock(accountID string) { s.accountLock(accountID).Unlock() }

func (s *ledgerService) IssueText(ctx context.Context, accountID, originalID string, kind model.TextKind, gen TextGenFunc) (model.TextVariant, error) {
	s.Lock(accountID)
	defer s.Unlock(accountID)

	hist := s.textHistory(ctx, accountID, originalID, kind)

	c, err := gen(hist)
	if err != nil {
		return model.TextVariant{}, err
	}

	// The in-memory lock only serializes this process; another instance may
	// have issued the same text since the history was read.
	dup, err := s.repo.HasText(ctx, accountID, originalID, kind, c.Text)
	if err != nil {
		logJSON(map[string]any{
			"level":      "warn",
			"component":  "ledger",
			"msg":        "duplicate check unreadable, relying on the append constraint",
			"account_id": accountID,
			"kind":       string(kind),
			"error":      err.Error(),
		})
		dup = false
	}
	if dup {
		return model.TextVariant{}, fmt.Errorf("text already issued for original %s: %w", originalID, textgen.ErrExhausted)
	}

	v := &model.TextVariant{
		AccountID:  accountID,
		OriginalID: originalID,
		Kind:       kind,
		Text:       c.Text,
		Strategy:   c.Strategy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.AppendText(ctx, v); err != nil {
		return model.TextVariant{}, err
	}
	return *v, nil
}

// textHistory loads the account's issue record. Corrupt or unreadable history
// is a degraded state, not a hard failure: the listing proceeds without the
// exclusion guarantee and the condition is logged for the operator.
func (s *ledgerService) textHistory(ctx context.Context, accountID, originalID string, kind model.TextKind) textgen.History {
	used, err := s.repo.ListTexts(ctx, accountID, originalID, kind)
	if err != nil {
		logJSON(map[string]any{
			"level":      "warn",
			"component":  "ledger",
			"msg":        "text history unreadable, proceeding without exclusions",
			"account_id": accountID,
			"kind":       string(kind),
			"error":      err.Error(),
		})
		return textgen.History{}
	}

	last, err := s.repo.LastStrategy(ctx, accountID, kind)
	if err != nil {
		logJSON(map[string]any{
			"level":      "warn",
			"component":  "ledger",
			"msg":        "last strategy unreadable, proceeding without strategy exclusion",
			"account_id": accountID,
			"kind":       string(kind),
			"error":      err.Error(),
		})
		last = ""
	}

	return textgen.History{Used: used, LastStrategy: last}
}

func (s *ledgerService) SeenImageTuple(ctx context.Context, accountID, sourceSHA string) func(int, int, int) (bool, error) {
	return func(width, height, quality int) (bool, error) {
		seen, err := s.repo.HasImageTuple(ctx, accountID, sourceSHA, width, height, quality)
		if err != nil {
			logJSON(map[string]any{
				"level":      "warn",
				"component":  "ledger",
				"msg":        "image history unreadable, proceeding without exclusions",
				"account_id": accountID,
				"source":     sourceSHA,
				"error":      err.Error(),
			})
			return false, nil
		}
		return seen, nil
	}
}

func (s *ledgerService) RecordImage(ctx context.Context, accountID string, d *model.ImageDerivative) error {
	return s.repo.AppendImage(ctx, accountID, d)
}

func (s *ledgerService) Compact(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.Compact(ctx, cutoff)
}

// logJSON emits one line-delimited JSON log record.
func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
