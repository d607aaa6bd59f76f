package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/MrWong99/lexibot/pkg/translate"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

type factories[T any] map[string]func(ProviderEntry) (T, error)

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	dictionary factories[dictionary.Provider]
	tts        factories[tts.Provider]
	translate  factories[translate.Translator]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		dictionary: make(factories[dictionary.Provider]),
		tts:        make(factories[tts.Provider]),
		translate:  make(factories[translate.Translator]),
	}
}

// RegisterDictionary registers a dictionary provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterDictionary(name string, factory func(ProviderEntry) (dictionary.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dictionary[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterTranslator registers a translator factory under name.
func (r *Registry) RegisterTranslator(name string, factory func(ProviderEntry) (translate.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// CreateDictionary instantiates a dictionary provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateDictionary(entry ProviderEntry) (dictionary.Provider, error) {
	return create(r, r.dictionary, "dictionary", entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	return create(r, r.tts, "tts", entry)
}

// CreateTranslator instantiates a translator using the factory registered under entry.Name.
func (r *Registry) CreateTranslator(entry ProviderEntry) (translate.Translator, error) {
	return create(r, r.translate, "translate", entry)
}

// DictionaryNames returns the registered dictionary provider names, sorted.
func (r *Registry) DictionaryNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dictionary))
	for n := range r.dictionary {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func create[T any](r *Registry, f factories[T], kind string, entry ProviderEntry) (T, error) {
	r.mu.RLock()
	factory, ok := f[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	return factory(entry)
}
