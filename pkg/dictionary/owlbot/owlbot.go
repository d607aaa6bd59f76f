// Package owlbot implements [dictionary.Provider] for the OwlBot dictionary
// API (owlbot.info). An API token is required.
package owlbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
)

const (
	defaultBaseURL = "https://owlbot.info/api/v2/dictionary"
	defaultTimeout = 10 * time.Second
)

// Compile-time interface assertion.
var _ dictionary.Provider = (*Provider)(nil)

// apiDefinition is one element of the OwlBot v2 response array.
type apiDefinition struct {
	Type       string `json:"type"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
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

// Provider queries OwlBot.
type Provider struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// New creates an OwlBot provider. token must be non-empty.
func New(token string, opts ...Option) (*Provider, error) {
	if token == "" {
		return nil, errors.New("owlbot: token must not be empty")
	}
	p := &Provider{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements [dictionary.Provider].
func (p *Provider) Name() string { return "Owlbot" }

// Define implements [dictionary.Provider].
func (p *Provider) Define(ctx context.Context, word string) ([]dictionary.Definition, error) {
	reqURL := p.baseURL + "/" + url.PathEscape(word) + "?format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("owlbot: create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("owlbot: request: %w: %w", dictionary.Classify(ctx, err), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []dictionary.Definition{}, nil
	case resp.StatusCode != http.StatusOK:
		slog.Warn("owlbot: unexpected status", "status", resp.StatusCode, "word", word)
		return nil, fmt.Errorf("owlbot: %w: unexpected status %d", dictionary.ErrLookupFailed, resp.StatusCode)
	}

	var raw []apiDefinition
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("owlbot: decode response: %w: %w", dictionary.Classify(ctx, err), err)
	}

	defs := make([]dictionary.Definition, 0, len(raw))
	for _, d := range raw {
		if d.Definition == "" {
			continue
		}
		defs = append(defs, dictionary.Definition{WordType: d.Type, Text: d.Definition})
	}
	return defs, nil
}
