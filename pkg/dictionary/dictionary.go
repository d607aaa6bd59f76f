// Package dictionary defines the Provider interface for word-definition
// backends.
//
// A dictionary provider wraps a remote API (OwlBot, the free dictionary API at
// dictionaryapi.dev, ...) and returns an ordered list of definitions for a
// word. An unknown word is not an error: providers return an empty slice.
//
// Implementations must be safe for concurrent use.
package dictionary

import (
	"context"
	"errors"
)

var (
	// ErrLookupFailed reports that a provider could not produce an answer:
	// network failure, unexpected status, or an undecodable body.
	ErrLookupFailed = errors.New("dictionary: lookup failed")

	// ErrLookupTimeout reports that a provider did not answer within its
	// deadline.
	ErrLookupTimeout = errors.New("dictionary: lookup timed out")
)

// Definition is one sense of a word.
type Definition struct {
	// WordType is the part of speech ("noun", "verb", ...). May be empty.
	WordType string `json:"word_type"`

	// Text is the definition itself.
	Text string `json:"definition"`
}

// Provider is the abstraction over any dictionary backend.
type Provider interface {
	// Define returns the definitions of word in the provider's order. A word
	// the provider does not know yields an empty slice and a nil error.
	// Failures wrap [ErrLookupFailed] or [ErrLookupTimeout].
	Define(ctx context.Context, word string) ([]Definition, error)

	// Name is the display name used for attribution, e.g. "Owlbot".
	Name() string
}

// Result is the outcome of a lookup together with the provider that served it.
type Result struct {
	Definitions []Definition
	Source      string
}

// Sourcer is implemented by composite providers that can report which member
// served a lookup.
type Sourcer interface {
	LookupSource(ctx context.Context, word string) (Result, error)
}

// Selector is implemented by composite providers whose members can be
// reordered or narrowed per request. ids name members by their registration
// id; unknown ids are ignored and a selection matching nothing returns the
// full chain.
type Selector interface {
	Select(ids []string) Provider
}

// Select narrows p to ids when p is a [Selector] and ids is non-empty.
// Otherwise p is returned unchanged.
func Select(p Provider, ids []string) Provider {
	if s, ok := p.(Selector); ok && len(ids) > 0 {
		return s.Select(ids)
	}
	return p
}

// Lookup queries p and attributes the answer. Composite providers
// implementing [Sourcer] report the member that answered; any other provider
// is attributed to its own Name.
func Lookup(ctx context.Context, p Provider, word string) (Result, error) {
	if s, ok := p.(Sourcer); ok {
		return s.LookupSource(ctx, word)
	}
	defs, err := p.Define(ctx, word)
	if err != nil {
		return Result{Source: p.Name()}, err
	}
	return Result{Definitions: defs, Source: p.Name()}, nil
}

// Classify returns [ErrLookupTimeout] when err (or ctx) reflects an expired
// deadline and [ErrLookupFailed] otherwise. Providers use it to pick the
// sentinel to wrap.
func Classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrLookupTimeout
	}
	return ErrLookupFailed
}
