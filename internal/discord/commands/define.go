package commands

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/definition"
	"github.com/MrWong99/lexibot/internal/discord"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

const (
	enqueueTimeout = 5 * time.Second

	// minLanguageScore filters autocomplete suggestions that share little
	// more than a letter with the input.
	minLanguageScore = 0.6
)

// Reply texts shared with the tests.
const (
	msgNotAWord      = "That's not a word."
	msgVoiceRequired = "You must be in a voice channel to use text-to-speech!"
	msgNoSpeech      = "Text-to-speech is not available right now."
	msgShuttingDown  = "I'm restarting, please try again in a moment."
	msgFailed        = "Something went wrong, please try again."
)

// DefinitionCommands handles /define and /backwards.
type DefinitionCommands struct {
	queue  DefinitionQueue
	voice  VoiceLocator
	voices []tts.Voice
	log    *slog.Logger
}

// NewDefinitionCommands creates the /define and /backwards handlers. voices
// feeds the language autocomplete and may be empty when the synthesizer
// accepts any code.
func NewDefinitionCommands(queue DefinitionQueue, voice VoiceLocator, voices []tts.Voice) *DefinitionCommands {
	return &DefinitionCommands{queue: queue, voice: voice, voices: voices, log: slog.Default()}
}

// Register registers /define and /backwards with the router.
func (dc *DefinitionCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("define", dc.definition("define", "Gets the definition of a word and optionally reads it out to you."), dc.handle(false))
	router.RegisterCommand("backwards", dc.definition("backwards", "Gets the definition of a word, but backwards."), dc.handle(true))
	router.RegisterAutocomplete("define", dc.handleAutocomplete)
	router.RegisterAutocomplete("backwards", dc.handleAutocomplete)
}

func (dc *DefinitionCommands) definition(name, description string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "word",
				Description: "The word to define.",
				Required:    true,
				MaxLength:   definition.MaxWordLength,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "text_to_speech",
				Description: "Reads the definition to you.",
			},
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "language",
				Description:  "The language to use when reading the definition.",
				Autocomplete: len(dc.voices) > 0,
			},
		},
	}
}

func (dc *DefinitionCommands) handle(reverse bool) discord.HandlerFunc {
	return func(r discord.Responder, i *discordgo.InteractionCreate) {
		opts := options(i)
		word := strings.TrimSpace(stringOption(opts, "word"))
		if definition.ValidateWord(word) != nil {
			discord.RespondEphemeral(r, i, msgNotAWord)
			return
		}

		speak := boolOption(opts, "text_to_speech")
		voiceID := dc.voice.UserVoiceChannel(i.GuildID, interactionUserID(i))
		if speak && voiceID == "" {
			discord.RespondEphemeral(r, i, msgVoiceRequired)
			return
		}
		if speak && !dc.queue.CanSpeak() {
			discord.RespondEphemeral(r, i, msgNoSpeech)
			return
		}

		req := definition.Request{
			RequesterID:    interactionUserID(i),
			GuildID:        i.GuildID,
			TextChannelID:  i.ChannelID,
			VoiceChannelID: voiceID,
			Word:           word,
			Reverse:        reverse,
			TextToSpeech:   speak,
		}
		if lang := strings.TrimSpace(stringOption(opts, "language")); lang != "" {
			code, ok := dc.resolveLanguage(lang)
			if !ok {
				discord.RespondEphemeral(r, i, fmt.Sprintf("Could not find a language matching `%s`!", lang))
				return
			}
			req.VoiceCode = code
			req.Language = code
		}

		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		switch err := dc.queue.Enqueue(ctx, req); {
		case err == nil:
			discord.RespondEphemeral(r, i, fmt.Sprintf("Looking up **%s**...", word))
		case errors.Is(err, definition.ErrInvalidWord):
			discord.RespondEphemeral(r, i, msgNotAWord)
		case errors.Is(err, definition.ErrClosed):
			discord.RespondEphemeral(r, i, msgShuttingDown)
		default:
			dc.log.Error("failed to enqueue definition request", "word", word, "channel_id", i.ChannelID, "err", err)
			discord.RespondEphemeral(r, i, msgFailed)
		}
	}
}

// resolveLanguage maps user input to a voice code. Input is matched against
// voice codes first, then labels. Without a voice list any input is
// accepted as is.
func (dc *DefinitionCommands) resolveLanguage(input string) (string, bool) {
	if len(dc.voices) == 0 {
		return input, true
	}
	if v, ok := tts.FindVoice(dc.voices, input); ok {
		return v.Code, true
	}
	for _, v := range dc.voices {
		if strings.EqualFold(v.Label, input) {
			return v.Code, true
		}
	}
	return "", false
}

func (dc *DefinitionCommands) handleAutocomplete(r discord.Responder, i *discordgo.InteractionCreate) {
	matches := rankVoices(dc.voices, focusedValue(i))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(matches))
	for _, v := range matches {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%s)", v.Label, v.Code),
			Value: v.Code,
		})
	}
	discord.RespondChoices(r, i, choices)
}

// rankVoices orders voices by similarity to partial. Prefix matches on the
// code or label always come first; the rest are ranked by Jaro-Winkler
// similarity and dropped below minLanguageScore. An empty partial returns
// voices unchanged.
func rankVoices(voices []tts.Voice, partial string) []tts.Voice {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if partial == "" {
		return voices
	}

	type scored struct {
		voice tts.Voice
		score float64
	}
	var ranked []scored
	for _, v := range voices {
		code, label := strings.ToLower(v.Code), strings.ToLower(v.Label)
		score := max(matchr.JaroWinkler(partial, code, false), matchr.JaroWinkler(partial, label, false))
		if strings.HasPrefix(code, partial) || strings.HasPrefix(label, partial) {
			score += 1
		}
		if score >= minLanguageScore {
			ranked = append(ranked, scored{v, score})
		}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return cmp.Compare(b.score, a.score) })

	out := make([]tts.Voice, len(ranked))
	for n, s := range ranked {
		out[n] = s.voice
	}
	return out
}
