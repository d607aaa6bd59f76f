package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteWithResult_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{})
	fg.Add("primary", "a")
	fg.Add("secondary", "b")

	var tried []string
	got, name, err := ExecuteWithResult(context.Background(), fg, func(_ context.Context, v string) (string, error) {
		tried = append(tried, v)
		return "result-" + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "result-a" || name != "primary" {
		t.Errorf("got %q from %q, want result-a from primary", got, name)
	}
	if len(tried) != 1 {
		t.Errorf("tried %v, want only the primary", tried)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{})
	fg.Add("primary", "a")
	fg.Add("secondary", "b")

	got, name, err := ExecuteWithResult(context.Background(), fg, func(_ context.Context, v string) (int, error) {
		if v == "a" {
			return 0, errTest
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || name != "secondary" {
		t.Errorf("got %d from %q, want 42 from secondary", got, name)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	t.Parallel()

	errB := errors.New("b failed")
	fg := NewFallbackGroup[string](FallbackConfig{})
	fg.Add("a", "a")
	fg.Add("b", "b")

	_, _, err := ExecuteWithResult(context.Background(), fg, func(_ context.Context, v string) (int, error) {
		if v == "a" {
			return 0, errTest
		}
		return 0, errB
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) || !errors.Is(err, errB) {
		t.Errorf("err should wrap every attempt error: %v", err)
	}
	var all *AllFailedError
	if !errors.As(err, &all) || len(all.Attempts) != 2 {
		t.Fatalf("attempts = %+v, want 2", all)
	}
	if all.Attempts[1].Name != "b" {
		t.Errorf("attempts[1].Name = %q", all.Attempts[1].Name)
	}
}

func TestExecuteWithResult_Empty(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{})
	_, _, err := ExecuteWithResult(context.Background(), fg, func(context.Context, string) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestExecuteWithResult_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.Add("primary", "a")
	fg.Add("secondary", "b")

	calls := map[string]int{}
	fn := func(_ context.Context, v string) (string, error) {
		calls[v]++
		if v == "a" {
			return "", errTest
		}
		return v, nil
	}
	for range 3 {
		if _, _, err := ExecuteWithResult(context.Background(), fg, fn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls["a"] != 1 {
		t.Errorf("primary called %d times, want 1 (breaker should open)", calls["a"])
	}
	if calls["b"] != 3 {
		t.Errorf("secondary called %d times, want 3", calls["b"])
	}
	if fg.Breaker("primary").State() != StateOpen {
		t.Errorf("primary breaker = %v, want open", fg.Breaker("primary").State())
	}
	if fg.Breaker("missing") != nil {
		t.Error("Breaker(missing) should be nil")
	}
}

func TestExecuteWithResult_PerAttemptTimeout(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{Timeout: 20 * time.Millisecond})
	fg.Add("slow", "slow")
	fg.AddWithTimeout("fast", "fast", 0)

	got, name, err := ExecuteWithResult(context.Background(), fg, func(ctx context.Context, v string) (string, error) {
		if v == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		if _, ok := ctx.Deadline(); ok {
			t.Error("fast entry should have no deadline")
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fast" || name != "fast" {
		t.Errorf("got %q from %q", got, name)
	}
}

func TestExecuteWithResult_StopsOnCallerCancel(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[string](FallbackConfig{})
	fg.Add("a", "a")
	fg.Add("b", "b")

	ctx, cancel := context.WithCancel(context.Background())
	var tried []string
	_, _, err := ExecuteWithResult(ctx, fg, func(_ context.Context, v string) (int, error) {
		tried = append(tried, v)
		cancel()
		return 0, context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(tried) != 1 {
		t.Errorf("tried %v, want only the first entry", tried)
	}
}

func TestExecute(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup[int](FallbackConfig{})
	fg.Add("one", 1)
	fg.Add("two", 2)

	name, err := Execute(context.Background(), fg, func(_ context.Context, v int) error {
		if v == 1 {
			return errTest
		}
		return nil
	})
	if err != nil || name != "two" {
		t.Fatalf("Execute = (%q, %v), want (two, nil)", name, err)
	}
	if fg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fg.Len())
	}
}
