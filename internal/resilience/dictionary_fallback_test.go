package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/dictionary/mock"
)

func TestDictionaryFallback_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{ProviderName: "Unofficial Google API", Err: dictionary.ErrLookupFailed}
	secondary := &mock.Provider{
		ProviderName: "Owlbot",
		Definitions:  map[string][]dictionary.Definition{"cat": {{WordType: "noun", Text: "a small feline"}}},
	}
	tertiary := &mock.Provider{ProviderName: "never"}

	f := NewDictionaryFallback(FallbackConfig{})
	f.AddAs("freedict", primary, 0)
	f.AddAs("owlbot", secondary, 0)
	f.AddAs("never", tertiary, 0)

	res, err := f.LookupSource(context.Background(), "cat")
	if err != nil {
		t.Fatalf("LookupSource: %v", err)
	}
	if res.Source != "Owlbot" || len(res.Definitions) != 1 {
		t.Errorf("result = %+v", res)
	}
	if tertiary.CallCount() != 0 {
		t.Error("providers after the first success must not be queried")
	}
}

func TestDictionaryFallback_EmptyResultIsSuccess(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{ProviderName: "primary"}
	secondary := &mock.Provider{ProviderName: "secondary"}

	f := NewDictionaryFallback(FallbackConfig{})
	f.AddAs("primary", primary, 0)
	f.AddAs("secondary", secondary, 0)

	defs, err := f.Define(context.Background(), "qwxz")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("defs = %v, want empty", defs)
	}
	if secondary.CallCount() != 0 {
		t.Error("an empty result must not fall through to the next provider")
	}
}

func TestDictionaryFallback_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		providers []*mock.Provider
		want      error
	}{
		{
			name: "all time out",
			providers: []*mock.Provider{
				{ProviderName: "a", Delay: time.Second},
				{ProviderName: "b", Delay: time.Second},
			},
			want: dictionary.ErrLookupTimeout,
		},
		{
			name: "mixed",
			providers: []*mock.Provider{
				{ProviderName: "a", Delay: time.Second},
				{ProviderName: "b", Err: dictionary.ErrLookupFailed},
			},
			want: dictionary.ErrLookupFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewDictionaryFallback(FallbackConfig{Timeout: 10 * time.Millisecond})
			for _, p := range tt.providers {
				f.AddAs(p.ProviderName, p, 0)
			}
			_, err := f.Define(context.Background(), "cat")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrAllFailed) {
				t.Errorf("err should wrap ErrAllFailed: %v", err)
			}
		})
	}
}

func TestDictionaryFallback_Name(t *testing.T) {
	t.Parallel()

	f := NewDictionaryFallback(FallbackConfig{})
	f.AddAs("freedict", &mock.Provider{ProviderName: "Unofficial Google API"}, 0)
	f.AddAs("owlbot", &mock.Provider{ProviderName: "Owlbot"}, time.Second)
	if got := f.Name(); got != "freedict, owlbot" {
		t.Errorf("Name() = %q", got)
	}
}

func TestDictionaryFallback_Select(t *testing.T) {
	t.Parallel()

	cat := map[string][]dictionary.Definition{"cat": {{WordType: "noun", Text: "a small feline"}}}
	google := &mock.Provider{ProviderName: "Unofficial Google API", Definitions: cat}
	owl := &mock.Provider{ProviderName: "Owlbot", Definitions: cat}

	f := NewDictionaryFallback(FallbackConfig{})
	f.AddAs("freedict", google, 0)
	f.AddAs("owlbot", owl, 0)

	tests := []struct {
		name       string
		ids        []string
		wantSource string
		wantName   string
	}{
		{"configured order", nil, "Unofficial Google API", "freedict, owlbot"},
		{"reordered", []string{"owlbot", "freedict"}, "Owlbot", "owlbot, freedict"},
		{"narrowed", []string{"owlbot"}, "Owlbot", "owlbot"},
		{"unknown ids skipped", []string{"wiktionary", "freedict"}, "Unofficial Google API", "freedict"},
		{"nothing known", []string{"wiktionary"}, "Unofficial Google API", "freedict, owlbot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dictionary.Select(f, tt.ids)
			if got := p.Name(); got != tt.wantName {
				t.Errorf("Name() = %q, want %q", got, tt.wantName)
			}
			res, err := dictionary.Lookup(context.Background(), p, "cat")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if res.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", res.Source, tt.wantSource)
			}
		})
	}
}

func TestDictionaryFallback_SelectSharesBreakers(t *testing.T) {
	t.Parallel()

	failing := &mock.Provider{ProviderName: "Owlbot", Err: dictionary.ErrLookupFailed}
	f := NewDictionaryFallback(FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}})
	f.AddAs("owlbot", failing, 0)
	f.AddAs("freedict", &mock.Provider{ProviderName: "Unofficial Google API"}, 0)

	sel := f.Select([]string{"owlbot"})
	if _, err := sel.Define(context.Background(), "cat"); err == nil {
		t.Fatal("expected error from the only selected member")
	}
	if _, err := f.Define(context.Background(), "cat"); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if failing.CallCount() != 1 {
		t.Errorf("owlbot calls = %d, want 1 once its breaker opened through the selection", failing.CallCount())
	}
}
