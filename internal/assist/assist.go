// Package assist wraps the optional external text-generation service. Calls
// are bounded three ways: a hard wall-clock timeout per call, a maximum
// response length, and a running token budget checked before every call.
// A failed or over-budget call is never fatal; callers fall through to the
// rule-based tier.
package assist

import (
	"context"
	"errors"
)

var (
	// ErrDisabled means the adapter was not configured; treat like any other unavailability.
	ErrDisabled = errors.New("assist is disabled")
	// ErrBudgetExceeded means the running token budget was spent before this call.
	ErrBudgetExceeded = errors.New("assist token budget exceeded")
	// ErrTimeout means the call exceeded its wall-clock deadline and was abandoned.
	ErrTimeout = errors.New("assist call timed out")
	// ErrServiceError covers transport failures and non-2xx responses.
	ErrServiceError = errors.New("assist service error")
)

// Unavailable reports whether err is one of the non-fatal assist failures
// that should trigger the rule-based fallback tier.
func Unavailable(err error) bool {
	return errors.Is(err, ErrDisabled) ||
		errors.Is(err, ErrBudgetExceeded) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServiceError)
}

// ProposeRequest carries the canonical text and the constraints the candidate
// must satisfy.
type ProposeRequest struct {
	Text      string
	MaxLength int
	// Exclude lists previously issued variants; the prompt instructs the
	// service to avoid them, and callers still re-check locally.
	Exclude []string
}

// Adapter proposes a reworded candidate for the given text. Implementations
// must never block past their configured timeout.
type Adapter interface {
	Propose(ctx context.Context, req ProposeRequest) (string, error)
	Enabled() bool
}
