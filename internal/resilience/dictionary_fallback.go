package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
)

// DictionaryFallback implements [dictionary.Provider] by querying an ordered
// chain of dictionary backends. Each backend has its own circuit breaker and
// per-call timeout; the first backend to answer without error wins, even when
// it answers with no definitions.
type DictionaryFallback struct {
	group *FallbackGroup[dictionary.Provider]
}

// Compile-time interface assertions.
var (
	_ dictionary.Provider = (*DictionaryFallback)(nil)
	_ dictionary.Sourcer  = (*DictionaryFallback)(nil)
	_ dictionary.Selector = (*DictionaryFallback)(nil)
)

// NewDictionaryFallback creates an empty chain. cfg.Timeout is the default
// per-provider timeout.
func NewDictionaryFallback(cfg FallbackConfig) *DictionaryFallback {
	return &DictionaryFallback{group: NewFallbackGroup[dictionary.Provider](cfg)}
}

// AddAs appends p under id, the name [DictionaryFallback.Select] matches.
// A non-positive timeout uses the default.
func (f *DictionaryFallback) AddAs(id string, p dictionary.Provider, timeout time.Duration) {
	if timeout <= 0 {
		f.group.Add(id, p)
		return
	}
	f.group.AddWithTimeout(id, p, timeout)
}

// Select implements [dictionary.Selector]. The returned chain shares circuit
// breakers with f.
func (f *DictionaryFallback) Select(ids []string) dictionary.Provider {
	sub := f.group.Subset(ids)
	if sub.Len() == 0 {
		return f
	}
	return &DictionaryFallback{group: sub}
}

// Name implements [dictionary.Provider]. It lists the member ids in order;
// attribution of an answer comes from [DictionaryFallback.LookupSource].
func (f *DictionaryFallback) Name() string {
	return strings.Join(f.group.Names(), ", ")
}

// Define implements [dictionary.Provider].
func (f *DictionaryFallback) Define(ctx context.Context, word string) ([]dictionary.Definition, error) {
	res, err := f.LookupSource(ctx, word)
	return res.Definitions, err
}

// LookupSource implements [dictionary.Sourcer]. When every backend fails the
// error wraps [dictionary.ErrLookupTimeout] if all attempts timed out and
// [dictionary.ErrLookupFailed] otherwise.
func (f *DictionaryFallback) LookupSource(ctx context.Context, word string) (dictionary.Result, error) {
	res, _, err := ExecuteWithResult(ctx, f.group, func(ctx context.Context, p dictionary.Provider) (dictionary.Result, error) {
		return dictionary.Lookup(ctx, p, word)
	})
	if err == nil {
		return res, nil
	}
	return dictionary.Result{}, fmt.Errorf("%w: %w", lookupSentinel(err), err)
}

// lookupSentinel picks the dictionary error matching the failed attempts.
func lookupSentinel(err error) error {
	var all *AllFailedError
	if !errors.As(err, &all) || len(all.Attempts) == 0 {
		return dictionary.ErrLookupFailed
	}
	for _, a := range all.Attempts {
		timedOut := errors.Is(a.Err, dictionary.ErrLookupTimeout) || errors.Is(a.Err, context.DeadlineExceeded)
		if !timedOut {
			return dictionary.ErrLookupFailed
		}
	}
	return dictionary.ErrLookupTimeout
}
