package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/lexibot/internal/config"
	"github.com/MrWong99/lexibot/internal/resilience"
	"github.com/MrWong99/lexibot/internal/settings"
	"github.com/MrWong99/lexibot/internal/settings/memstore"
	"github.com/MrWong99/lexibot/internal/settings/postgres"
	"github.com/MrWong99/lexibot/internal/settings/sqlite"
	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/dictionary/rediscache"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

// RedisClient is the subset of *redis.Client the lookup cache uses.
type RedisClient interface {
	rediscache.Client
	Close() error
}

var _ RedisClient = (*redis.Client)(nil)

// ErrNoDictionary is returned by New when no dictionary provider is
// configured.
var ErrNoDictionary = errors.New("app: no dictionary provider configured")

// openStore opens the settings backend selected in cfg. The returned closer
// is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.SettingsConfig) (settings.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memstore.New(), nil, nil
	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

// buildDictionary chains the configured dictionaries behind circuit
// breakers and, when a Redis address is set, a lookup cache.
func (a *App) buildDictionary() (dictionary.Provider, error) {
	if len(a.providers.Dictionaries) == 0 {
		return nil, ErrNoDictionary
	}

	fb := resilience.NewDictionaryFallback(a.fallbackConfig(a.cfg.Dictionary.Timeout))
	for _, e := range a.providers.Dictionaries {
		fb.AddAs(e.id(), e.Provider, e.Timeout)
	}

	cache := a.cfg.Dictionary.Cache
	if a.redis == nil && cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cache.RedisAddr,
			Password: cache.RedisPassword,
		})
		a.redis = client
		a.closers = append(a.closers, client.Close)
	}
	if a.redis == nil {
		return fb, nil
	}
	return rediscache.New(fb, a.redis, cache.TTL), nil
}

// buildSpeech puts the synthesizer behind a circuit breaker and the
// configured timeout.
func (a *App) buildSpeech(p tts.Provider) tts.Provider {
	fb := resilience.NewTTSFallback(a.fallbackConfig(a.cfg.TTS.Timeout))
	fb.Add(p)
	return fb
}

func (a *App) fallbackConfig(timeout time.Duration) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		Timeout: timeout,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) {
				a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
			},
		},
	}
}

func (e DictionaryEntry) id() string {
	if e.ID != "" {
		return strings.ToLower(e.ID)
	}
	return strings.ToLower(e.Provider.Name())
}

// dictionaryIDs lists the ids the dictionary_apis setting may name.
func (a *App) dictionaryIDs() []string {
	ids := make([]string, len(a.providers.Dictionaries))
	for n, e := range a.providers.Dictionaries {
		ids[n] = e.id()
	}
	return ids
}

// voiceList returns the voices p advertises, or nil.
func voiceList(p tts.Provider) []tts.Voice {
	if vl, ok := p.(tts.VoiceLister); ok {
		return vl.Voices()
	}
	return nil
}
