// Package memstore is an in-memory [settings.Store]. Values are lost on
// restart; it is the default backend and the one used in tests.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/MrWong99/lexibot/internal/settings"
)

var _ settings.Store = (*Store)(nil)

// Store is a map-backed settings store.
type Store struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{scopes: make(map[string]map[string]string)}
}

// Values implements [settings.Store].
func (s *Store) Values(_ context.Context, scope string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.scopes[scope]))
	maps.Copy(out, s.scopes[scope])
	return out, nil
}

// Set implements [settings.Store].
func (s *Store) Set(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.scopes[scope], key)
		return nil
	}
	vals, ok := s.scopes[scope]
	if !ok {
		vals = make(map[string]string)
		s.scopes[scope] = vals
	}
	vals[key] = value
	return nil
}

// Ping implements [settings.Store]. It always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
