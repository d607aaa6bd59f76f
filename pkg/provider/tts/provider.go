// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider turns one complete utterance into encoded audio (MP3 or WAV).
// Decoding and resampling to the voice channel's PCM format is left to
// audio.Transcoder, so providers return whatever container their service
// produces.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"strings"
)

// ErrSynthesisFailed wraps every provider failure.
var ErrSynthesisFailed = errors.New("tts: synthesis failed")

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize speaks text in the voice or language identified by
	// voiceCode (a BCP-47 style code such as "en", "en-GB" or "fr") and
	// returns the encoded audio. Errors wrap [ErrSynthesisFailed].
	Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Voice is a selectable voice/language offered to users.
type Voice struct {
	// Code is passed to [Provider.Synthesize] as voiceCode.
	Code string

	// Label is the human-readable name shown in autocomplete.
	Label string
}

// VoiceLister is implemented by providers that can enumerate the voice codes
// they accept.
type VoiceLister interface {
	Voices() []Voice
}

// Language returns the primary language subtag of a voice code, lower-cased:
// "en-GB" → "en".
func Language(voiceCode string) string {
	code := strings.ToLower(strings.TrimSpace(voiceCode))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}

// FindVoice looks up code in voices, case-insensitively, falling back to the
// primary language subtag ("es-MX" matches "es").
func FindVoice(voices []Voice, code string) (Voice, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, v := range voices {
		if strings.ToLower(v.Code) == code {
			return v, true
		}
	}
	if lang := Language(code); lang != code {
		return FindVoice(voices, lang)
	}
	return Voice{}, false
}
