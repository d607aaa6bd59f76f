// Package settings stores per-guild and per-text-channel bot preferences and
// resolves the effective values for a request.
//
// Values are kept as plain key/value pairs per scope. A channel value
// overrides the guild value, which overrides the configured default.
package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Keys accepted by [Validate].
const (
	KeyTextToSpeech         = "text_to_speech"
	KeyLanguage             = "language"
	KeyShowDefinitionSource = "show_definition_source"
	KeyDictionaryAPIs       = "dictionary_apis"
	KeyAutoTranslate        = "auto_translate"
)

// Keys lists every setting in display order.
var Keys = []string{
	KeyTextToSpeech,
	KeyLanguage,
	KeyShowDefinitionSource,
	KeyDictionaryAPIs,
	KeyAutoTranslate,
}

var dictionaryID = regexp.MustCompile(`^[a-z0-9_]+$`)

// ErrInvalidValue is returned by [Validate] for unknown keys or malformed
// values.
var ErrInvalidValue = errors.New("settings: invalid value")

// TextToSpeechPolicy is the channel-level override for the text-to-speech
// flag on definition requests.
type TextToSpeechPolicy string

const (
	// PolicyForce enables text-to-speech whenever the requester is in a voice
	// channel.
	PolicyForce TextToSpeechPolicy = "force"

	// PolicyFlag respects the flag on each request.
	PolicyFlag TextToSpeechPolicy = "flag"

	// PolicyDisable turns text-to-speech off for every request.
	PolicyDisable TextToSpeechPolicy = "disable"
)

// Apply returns the effective text-to-speech flag for a request that asked
// for requested. Unknown policies behave like [PolicyFlag].
func (p TextToSpeechPolicy) Apply(requested, inVoice bool) bool {
	switch p {
	case PolicyForce:
		return inVoice
	case PolicyDisable:
		return false
	default:
		return requested
	}
}

// Settings are the resolved values for one text channel.
type Settings struct {
	TextToSpeech         TextToSpeechPolicy
	Language             string
	ShowDefinitionSource bool

	// DictionaryAPIs is the preferred provider order. Empty means the
	// configured order.
	DictionaryAPIs []string

	// AutoTranslate translates the requested word into English before it is
	// looked up.
	AutoTranslate bool
}

// Store persists raw values per scope. A scope is a guild ID or a text
// channel ID.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Values returns every key set on scope. An unknown scope yields an empty
	// map.
	Values(ctx context.Context, scope string) (map[string]string, error)

	// Set stores value under key for scope. An empty value removes the key.
	Set(ctx context.Context, scope, key, value string) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Validate checks that value is acceptable for key and returns its canonical
// form. An empty value is always valid and means "unset".
func Validate(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	switch key {
	case KeyTextToSpeech:
		v := TextToSpeechPolicy(strings.ToLower(value))
		if v != PolicyForce && v != PolicyFlag && v != PolicyDisable {
			return "", fmt.Errorf("%w: %s must be one of force, flag, disable", ErrInvalidValue, key)
		}
		return string(v), nil
	case KeyLanguage:
		return value, nil
	case KeyShowDefinitionSource, KeyAutoTranslate:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		return strconv.FormatBool(b), nil
	case KeyDictionaryAPIs:
		ids := ParseList(value)
		for _, id := range ids {
			if !dictionaryID.MatchString(id) {
				return "", fmt.Errorf("%w: %q is not a dictionary name", ErrInvalidValue, id)
			}
		}
		if len(ids) == 0 {
			return "", fmt.Errorf("%w: %s needs at least one dictionary", ErrInvalidValue, key)
		}
		return strings.Join(ids, ","), nil
	default:
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidValue, key)
	}
}

// Resolver merges stored values over defaults. The defaults may be swapped
// at runtime with [Resolver.SetDefaults].
type Resolver struct {
	store Store

	mu       sync.RWMutex
	defaults Settings
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store Store, defaults Settings) *Resolver {
	return &Resolver{store: store, defaults: defaults}
}

// Defaults returns the current fallback values.
func (r *Resolver) Defaults() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// SetDefaults replaces the fallback values.
func (r *Resolver) SetDefaults(s Settings) {
	r.mu.Lock()
	r.defaults = s
	r.mu.Unlock()
}

// Store returns the backing store.
func (r *Resolver) Store() Store { return r.store }

// Resolve returns the effective settings for channelID in guildID. guildID
// may be empty for direct messages. On a store error the defaults are
// returned together with the error.
func (r *Resolver) Resolve(ctx context.Context, guildID, channelID string) (Settings, error) {
	defaults := r.Defaults()
	s := defaults
	for _, scope := range []string{guildID, channelID} {
		if scope == "" {
			continue
		}
		vals, err := r.store.Values(ctx, scope)
		if err != nil {
			return defaults, fmt.Errorf("settings: resolve %s: %w", scope, err)
		}
		apply(&s, vals)
	}
	return s, nil
}

func apply(s *Settings, vals map[string]string) {
	if v, ok := vals[KeyTextToSpeech]; ok && v != "" {
		s.TextToSpeech = TextToSpeechPolicy(v)
	}
	if v, ok := vals[KeyLanguage]; ok && v != "" {
		s.Language = v
	}
	if v, ok := vals[KeyShowDefinitionSource]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.ShowDefinitionSource = b
		}
	}
	if v, ok := vals[KeyDictionaryAPIs]; ok && v != "" {
		s.DictionaryAPIs = ParseList(v)
	}
	if v, ok := vals[KeyAutoTranslate]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AutoTranslate = b
		}
	}
}

// ParseList splits a comma-separated list, lower-cases the entries and drops
// blanks and repeats while keeping the first occurrence's position.
func ParseList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
