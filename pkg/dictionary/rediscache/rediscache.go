// Package rediscache decorates a [dictionary.Provider] with a Redis-backed
// lookup cache. Successful lookups (including "no definitions") are cached as
// JSON for a fixed TTL; failures are never cached. Cache errors are logged and
// fall through to the wrapped provider.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when [New] is given a non-positive TTL.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "lexibot:define:"

// Client is the subset of the go-redis client used by the cache.
// *redis.Client satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var (
	_ dictionary.Provider = (*Provider)(nil)
	_ dictionary.Sourcer  = (*Provider)(nil)
	_ dictionary.Selector = (*Provider)(nil)
	_ Client              = (*redis.Client)(nil)
)

// entry is the cached JSON document.
type entry struct {
	Source      string                  `json:"source"`
	Definitions []dictionary.Definition `json:"definitions"`
}

// Provider is a caching [dictionary.Provider].
type Provider struct {
	inner  dictionary.Provider
	client Client
	ttl    time.Duration

	// scope separates entries of reordered chains, which may answer
	// differently than the default chain. Empty for the default chain.
	scope string
}

// New wraps inner with a cache stored in client.
func New(inner dictionary.Provider, client Client, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{inner: inner, client: client, ttl: ttl}
}

// Select implements [dictionary.Selector]. The selection is cached under its
// own keys. When inner cannot select, p is returned.
func (p *Provider) Select(ids []string) dictionary.Provider {
	sel, ok := p.inner.(dictionary.Selector)
	if !ok {
		return p
	}
	inner := sel.Select(ids)
	if inner == p.inner {
		return p
	}
	return &Provider{inner: inner, client: p.client, ttl: p.ttl, scope: inner.Name()}
}

// Name implements [dictionary.Provider] by delegating to the wrapped provider.
func (p *Provider) Name() string { return p.inner.Name() }

// Define implements [dictionary.Provider].
func (p *Provider) Define(ctx context.Context, word string) ([]dictionary.Definition, error) {
	res, err := p.LookupSource(ctx, word)
	return res.Definitions, err
}

// LookupSource implements [dictionary.Sourcer].
func (p *Provider) LookupSource(ctx context.Context, word string) (dictionary.Result, error) {
	key := cacheKey(p.scope, word)

	if res, ok := p.get(ctx, key); ok {
		return res, nil
	}

	res, err := dictionary.Lookup(ctx, p.inner, word)
	if err != nil {
		return res, err
	}
	p.set(ctx, key, res)
	return res, nil
}

func (p *Provider) get(ctx context.Context, key string) (dictionary.Result, bool) {
	raw, err := p.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("rediscache: get failed", "key", key, "err", err)
		}
		return dictionary.Result{}, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		slog.Warn("rediscache: corrupt entry", "key", key, "err", err)
		return dictionary.Result{}, false
	}
	if e.Definitions == nil {
		e.Definitions = []dictionary.Definition{}
	}
	return dictionary.Result{Definitions: e.Definitions, Source: e.Source}, true
}

func (p *Provider) set(ctx context.Context, key string, res dictionary.Result) {
	data, err := json.Marshal(entry{Source: res.Source, Definitions: res.Definitions})
	if err != nil {
		slog.Warn("rediscache: marshal entry", "key", key, "err", err)
		return
	}
	if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
		slog.Warn("rediscache: set failed", "key", key, "err", err)
	}
}

// cacheKey normalises word so "Cat" and "cat" share an entry.
func cacheKey(scope, word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if scope == "" {
		return keyPrefix + word
	}
	return fmt.Sprintf("%s[%s]:%s", keyPrefix, scope, word)
}
