package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has
// an open circuit breaker.
var ErrAllFailed = errors.New("resilience: all providers failed")

// FallbackConfig configures the entries of a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the template for each entry's breaker. Its Name is
	// replaced with the entry name.
	CircuitBreaker CircuitBreakerConfig

	// Timeout bounds each individual attempt. Zero means no per-attempt
	// deadline beyond the caller's context.
	Timeout time.Duration
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	timeout time.Duration
	breaker *CircuitBreaker
}

// FallbackGroup holds an ordered list of providers of the same type. Entries
// are tried in registration order; the first success wins.
//
// Entries must be registered before the group is shared between goroutines.
// After that FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates an empty [FallbackGroup].
func NewFallbackGroup[T any](cfg FallbackConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends an entry using the group's default timeout.
func (fg *FallbackGroup[T]) Add(name string, value T) {
	fg.AddWithTimeout(name, value, fg.cfg.Timeout)
}

// AddWithTimeout appends an entry with its own per-attempt timeout.
func (fg *FallbackGroup[T]) AddWithTimeout(name string, value T, timeout time.Duration) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		timeout: timeout,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Names returns the entry names in order.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// Breaker returns the circuit breaker of the named entry, or nil.
func (fg *FallbackGroup[T]) Breaker(name string) *CircuitBreaker {
	for i := range fg.entries {
		if fg.entries[i].name == name {
			return fg.entries[i].breaker
		}
	}
	return nil
}

// Subset returns a group holding the named entries in the order of names.
// Entries keep their timeouts and share their circuit breakers with fg.
// Unknown and repeated names are skipped.
func (fg *FallbackGroup[T]) Subset(names []string) *FallbackGroup[T] {
	sub := &FallbackGroup[T]{cfg: fg.cfg}
	for _, name := range names {
		for _, e := range fg.entries {
			if e.name == name && sub.Breaker(name) == nil {
				sub.entries = append(sub.entries, e)
				break
			}
		}
	}
	return sub
}

// Attempt describes one failed try, reported through the error returned by
// [ExecuteWithResult].
type Attempt struct {
	Name string
	Err  error
}

// AllFailedError wraps [ErrAllFailed] and lists every attempt.
type AllFailedError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllFailed.Error() + ": no providers registered"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("%v: last attempt %s: %v", ErrAllFailed, last.Name, last.Err)
}

// Unwrap exposes [ErrAllFailed] and every attempt error to errors.Is/As.
func (e *AllFailedError) Unwrap() []error {
	errs := []error{ErrAllFailed}
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// ExecuteWithResult tries fn against each entry until one succeeds and
// returns its result together with the entry name. Each attempt gets a child
// context bounded by the entry timeout. Entries with an open breaker are
// skipped. When the caller's ctx is done no further entries are tried.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, string, error) {
	var (
		zero     R
		attempts []Attempt
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Name: entry.name, Err: err})
			break
		}

		var result R
		err := entry.breaker.Execute(func() error {
			attemptCtx, cancel := ctx, context.CancelFunc(func() {})
			if entry.timeout > 0 {
				attemptCtx, cancel = context.WithTimeout(ctx, entry.timeout)
			}
			defer cancel()

			var innerErr error
			result, innerErr = fn(attemptCtx, entry.value)
			return innerErr
		})
		if err == nil {
			return result, entry.name, nil
		}

		attempts = append(attempts, Attempt{Name: entry.name, Err: err})
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	return zero, "", &AllFailedError{Attempts: attempts}
}

// Execute is [ExecuteWithResult] for calls without a result value.
func Execute[T any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) error) (string, error) {
	_, name, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return name, err
}
