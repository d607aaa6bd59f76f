// Package mock provides a test double for the dictionary.Provider interface.
//
// Example:
//
//	p := &mock.Provider{
//	    Definitions: map[string][]dictionary.Definition{
//	        "cat": {{WordType: "noun", Text: "A small feline."}},
//	    },
//	}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
)

var _ dictionary.Provider = (*Provider)(nil)

// Provider is a mock implementation of dictionary.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Definitions maps words to their definitions. Unknown words yield an
	// empty slice.
	Definitions map[string][]dictionary.Definition

	// Err, if non-nil, is returned from every Define call.
	Err error

	// Delay makes Define wait (cancellably) before answering.
	Delay time.Duration

	// Calls records every word passed to Define, in order.
	Calls []string
}

// Name implements dictionary.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Define implements dictionary.Provider.
func (p *Provider) Define(ctx context.Context, word string) ([]dictionary.Definition, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, word)
	delay, err := p.Delay, p.Err
	defs, ok := p.Definitions[word]
	p.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, dictionary.Classify(ctx, ctx.Err())
		case <-t.C:
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return []dictionary.Definition{}, nil
	}
	out := make([]dictionary.Definition, len(defs))
	copy(out, defs)
	return out, nil
}

// CallCount returns the number of Define calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
