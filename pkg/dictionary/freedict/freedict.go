// Package freedict implements [dictionary.Provider] on top of the free
// dictionary API at dictionaryapi.dev (formerly the "unofficial Google
// dictionary API").
//
// One definition is taken per part of speech: the API lists the most common
// sense first, and a single sense per word type keeps spoken replies short.
package freedict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
)

const (
	defaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"
	defaultTimeout = 10 * time.Second
	retryDelay     = 500 * time.Millisecond
)

// Compile-time interface assertion.
var _ dictionary.Provider = (*Provider)(nil)

// apiEntry is a single entry of the API response. The API returns an array of
// entries, one per etymology.
type apiEntry struct {
	Word     string       `json:"word"`
	Meanings []apiMeaning `json:"meanings"`
}

// apiMeaning groups definitions sharing a part of speech.
type apiMeaning struct {
	PartOfSpeech string          `json:"partOfSpeech"`
	Definitions  []apiDefinition `json:"definitions"`
}

type apiDefinition struct {
	Definition string `json:"definition"`
}

// Option is a functional option for [New].
type Option func(*Provider)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// Provider fetches definitions from dictionaryapi.dev.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("adapter", "freedict")
	return p
}

// Name implements [dictionary.Provider].
func (p *Provider) Name() string { return "Unofficial Google API" }

// Define implements [dictionary.Provider]. A 404 from the API means the word
// is unknown and yields no definitions.
func (p *Provider) Define(ctx context.Context, word string) ([]dictionary.Definition, error) {
	reqURL := p.baseURL + "/" + url.PathEscape(word)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("freedict: create request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, req, word)
	if err != nil {
		return nil, fmt.Errorf("freedict: request: %w: %w", dictionary.Classify(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		p.log.DebugContext(ctx, "word not found", "word", word)
		return []dictionary.Definition{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freedict: %w: unexpected status %d", dictionary.ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("freedict: read body: %w: %w", dictionary.Classify(ctx, err), err)
	}

	var entries []apiEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("freedict: %w: decode json: %w", dictionary.ErrLookupFailed, err)
	}

	defs := mapEntries(entries)
	p.log.DebugContext(ctx, "freedict response", "word", word, "definitions", len(defs))
	return defs, nil
}

// doWithRetry executes the request with a single retry on 5xx or network
// errors.
func (p *Provider) doWithRetry(ctx context.Context, req *http.Request, word string) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)
	if err == nil && resp.StatusCode < 500 {
		return resp, nil
	}
	if ctx.Err() != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, ctx.Err()
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
		resp.Body.Close()
	}
	p.log.WarnContext(ctx, "freedict retry", "word", word, "reason", reason)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryDelay):
	}
	return p.httpClient.Do(req)
}

// mapEntries flattens the API entries into one definition per meaning.
func mapEntries(entries []apiEntry) []dictionary.Definition {
	defs := []dictionary.Definition{}
	for _, e := range entries {
		for _, m := range e.Meanings {
			if len(m.Definitions) == 0 || m.Definitions[0].Definition == "" {
				continue
			}
			defs = append(defs, dictionary.Definition{
				WordType: m.PartOfSpeech,
				Text:     m.Definitions[0].Definition,
			})
		}
	}
	return defs
}
