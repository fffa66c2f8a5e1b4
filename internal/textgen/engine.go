// Package textgen produces text variants for listings: a title or description
// that reads like the original but has never been issued for this account and
// original before. Generation is tiered: the generative assist service first,
// the rule-based strategy table second, and a deterministic timestamp suffix
// as the last resort, so a variant is always produced while the retry budget
// lasts.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"relistapi/internal/assist"
	"relistapi/internal/config"
	"relistapi/internal/model"
)

// ErrExhausted means every tier was tried up to its retry budget without
// producing a variant absent from history.
var ErrExhausted = errors.New("text variation attempts exhausted")

// descriptionMaxLen is the marketplace's description ceiling. Unlike titles
// it is a hard cut with no ellipsis.
const descriptionMaxLen = 5000

// History is the account's prior issue record for one original and kind.
// Used lists every text already issued; LastStrategy is the strategy of the
// most recent issue and is excluded from the next rule-based draw.
type History struct {
	Used         []string
	LastStrategy model.TextStrategy
}

// Candidate is a generated variant plus the strategy that produced it, so the
// caller can record both in the ledger.
type Candidate struct {
	Text     string
	Strategy model.TextStrategy
}

// Engine generates text variants. Safe for concurrent use; the shared RNG is
// mutex-guarded.
type Engine struct {
	cfg     config.VariationConfig
	adapter assist.Adapter

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine builds an Engine. A zero RandSeed seeds from the clock; tests set
// a fixed seed to make strategy draws reproducible. adapter may be nil when
// the assist tier is not deployed.
func NewEngine(cfg config.VariationConfig, adapter assist.Adapter) *Engine {
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:     cfg,
		adapter: adapter,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// GenerateTitle produces a title variant not present in hist.Used. Every
// candidate, from any tier, passes through TruncateTitle before the history
// check so the ledger only ever sees ceiling-compliant text.
func (e *Engine) GenerateTitle(ctx context.Context, original string, hist History) (Candidate, error) {
	used := usedSet(original, hist.Used)
	max := e.cfg.TitleMaxLen

	if c, ok := e.tryAssist(ctx, original, hist.Used, max, func(s string) string {
		return TruncateTitle(s, max)
	}, used); ok {
		return c, nil
	}

	if c, ok := e.tryRules(titleStrategies, titleStrategyKinds(), hist.LastStrategy, original, func(s string) string {
		return TruncateTitle(s, max)
	}, used); ok {
		return c, nil
	}

	return e.timestampFallback(original, used, max)
}

// GenerateDescription is GenerateTitle's counterpart for listing bodies. The
// ceiling is the marketplace's hard description limit and the cut carries no
// ellipsis.
func (e *Engine) GenerateDescription(ctx context.Context, original string, hist History) (Candidate, error) {
	used := usedSet(original, hist.Used)

	if c, ok := e.tryAssist(ctx, original, hist.Used, descriptionMaxLen, func(s string) string {
		return fitHead(s, descriptionMaxLen)
	}, used); ok {
		return c, nil
	}

	if c, ok := e.tryRules(descriptionStrategies, descriptionStrategyKinds(), hist.LastStrategy, original, func(s string) string {
		return fitHead(s, descriptionMaxLen)
	}, used); ok {
		return c, nil
	}

	return e.timestampFallback(original, used, descriptionMaxLen)
}

// tryAssist runs the assist tier. Any adapter failure, timeout, spent budget
// or disabled state included, silently yields to the next tier.
func (e *Engine) tryAssist(ctx context.Context, original string, exclude []string, max int, trunc func(string) string, used map[string]struct{}) (Candidate, bool) {
	if e.adapter == nil || !e.adapter.Enabled() {
		return Candidate{}, false
	}

	for i := 0; i < e.cfg.TextRetries; i++ {
		got, err := e.adapter.Propose(ctx, assist.ProposeRequest{
			Text:      original,
			MaxLength: max,
			Exclude:   exclude,
		})
		if err != nil {
			// Every adapter failure is non-fatal here; the rule tier takes over.
			return Candidate{}, false
		}
		candidate := trunc(strings.TrimSpace(got))
		if candidate == "" {
			continue
		}
		if _, seen := used[candidate]; !seen {
			return Candidate{Text: candidate, Strategy: model.StrategyAssist}, true
		}
	}
	return Candidate{}, false
}

// tryRules runs the rule-based tier: each attempt draws a strategy from the
// table, excluding the account's most recently used one, and checks the
// truncated result against history.
func (e *Engine) tryRules(table map[model.TextStrategy]func(*rand.Rand, string) string, kinds []model.TextStrategy, last model.TextStrategy, original string, trunc func(string) string, used map[string]struct{}) (Candidate, bool) {
	eligible := kinds[:0:0]
	for _, k := range kinds {
		if k != last {
			eligible = append(eligible, k)
		}
	}
	if len(eligible) == 0 {
		eligible = kinds
	}

	for i := 0; i < e.cfg.TextRetries; i++ {
		e.mu.Lock()
		kind := eligible[e.rng.Intn(len(eligible))]
		candidate := trunc(table[kind](e.rng, original))
		e.mu.Unlock()

		if candidate == "" {
			continue
		}
		if _, seen := used[candidate]; !seen {
			return Candidate{Text: candidate, Strategy: kind}, true
		}
	}
	return Candidate{}, false
}

// timestampFallback appends a wall-clock token, trimming the base text so the
// token always survives the ceiling. It is unique by construction within a
// second; the sequence counter covers repeat calls inside one.
func (e *Engine) timestampFallback(original string, used map[string]struct{}, max int) (Candidate, error) {
	for i := 0; i <= e.cfg.TextRetries; i++ {
		token := time.Now().Format("060102-150405")
		if i > 0 {
			token = fmt.Sprintf("%s-%d", token, i)
		}
		suffix := " - " + token
		base := fitHead(original, max-len(suffix))
		candidate := base + suffix
		if _, seen := used[candidate]; !seen {
			return Candidate{Text: candidate, Strategy: model.StrategyTimestampSuffix}, nil
		}
	}
	return Candidate{}, ErrExhausted
}

func usedSet(original string, used []string) map[string]struct{} {
	set := make(map[string]struct{}, len(used)+1)
	set[original] = struct{}{}
	for _, u := range used {
		set[u] = struct{}{}
	}
	return set
}
