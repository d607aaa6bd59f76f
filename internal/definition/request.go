package definition

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// MaxWordLength is the longest word accepted by [ValidateWord].
const MaxWordLength = 100

var (
	// ErrInvalidWord is returned by [ValidateWord] and [Manager.Enqueue].
	ErrInvalidWord = errors.New("definition: invalid word")

	// ErrNoActivePlayback is returned by [Manager.Next] when nothing is being
	// spoken in the given voice channel.
	ErrNoActivePlayback = errors.New("definition: no active playback")

	// ErrClosed is returned by [Manager.Enqueue] after [Manager.Close].
	ErrClosed = errors.New("definition: manager closed")
)

var wordPattern = regexp.MustCompile(`^[a-zA-Z\-' ]+$`)

// ValidateWord reports whether word may be looked up.
func ValidateWord(word string) error {
	switch {
	case word == "":
		return fmt.Errorf("%w: empty", ErrInvalidWord)
	case len(word) > MaxWordLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidWord, MaxWordLength)
	case !wordPattern.MatchString(word):
		return fmt.Errorf("%w: only letters, hyphens, apostrophes and spaces are allowed", ErrInvalidWord)
	}
	return nil
}

// Request is one user-initiated definition ask.
type Request struct {
	// ID identifies the request in logs. Assigned by Enqueue when zero.
	ID uuid.UUID

	RequesterID   string
	GuildID       string
	TextChannelID string

	// VoiceChannelID is the requester's current voice channel, empty when
	// they are not in one.
	VoiceChannelID string

	Word string

	// Reverse spells the word and its definitions backwards.
	Reverse bool

	// TextToSpeech asks for the definitions to be spoken. The channel policy
	// may override it at enqueue time.
	TextToSpeech bool

	// VoiceCode selects the synthesizer voice (e.g. "en-US"). Empty means the
	// channel or configured default.
	VoiceCode string

	// Language is the target language for translated definitions. Empty or
	// English means no translation. Ignored unless the channel has
	// auto_translate on, which also fills it from the channel language.
	Language string
}
