package commands

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/definition"
	"github.com/MrWong99/lexibot/internal/discord"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

const msgAnyLanguage = "The text-to-speech voice accepts any language code, for example `en-US` or `fr-FR`."

// InfoCommands handles /help and /languages. Long answers are split into
// several messages; the first answers the interaction and the rest go to
// the channel.
type InfoCommands struct {
	router *discord.CommandRouter
	voices []tts.Voice
	sender definition.Replier
	speech bool
	log    *slog.Logger
}

// NewInfoCommands creates the /help and /languages handlers. speech reports
// whether text-to-speech is configured at all.
func NewInfoCommands(voices []tts.Voice, speech bool, sender definition.Replier) *InfoCommands {
	return &InfoCommands{voices: voices, sender: sender, speech: speech, log: slog.Default()}
}

// Register registers /help and /languages with the router. /help lists every
// command registered on router when it runs.
func (ic *InfoCommands) Register(router *discord.CommandRouter) {
	ic.router = router
	router.RegisterCommand("help", &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "Shows the available commands.",
	}, ic.handleHelp)
	router.RegisterCommand("languages", &discordgo.ApplicationCommand{
		Name:        "languages",
		Description: "Shows the list of supported languages for text to speech.",
	}, ic.handleLanguages)
}

func (ic *InfoCommands) handleHelp(r discord.Responder, i *discordgo.InteractionCreate) {
	var b strings.Builder
	b.WriteString("__Available Commands__\n")
	for _, cmd := range ic.router.ApplicationCommands() {
		subs := 0
		for _, opt := range cmd.Options {
			if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
				fmt.Fprintf(&b, "**/%s %s**\n%s\n", cmd.Name, opt.Name, opt.Description)
				subs++
			}
		}
		if subs == 0 {
			fmt.Fprintf(&b, "**/%s**\n%s\n", cmd.Name, cmd.Description)
		}
	}
	ic.reply(r, i, b.String())
}

func (ic *InfoCommands) handleLanguages(r discord.Responder, i *discordgo.InteractionCreate) {
	switch {
	case !ic.speech:
		discord.RespondEphemeral(r, i, msgNoSpeech)
		return
	case len(ic.voices) == 0:
		discord.RespondEphemeral(r, i, msgAnyLanguage)
		return
	}

	voices := slices.Clone(ic.voices)
	slices.SortFunc(voices, func(a, b tts.Voice) int { return cmp.Compare(a.Code, b.Code) })

	var b strings.Builder
	b.WriteString("__Supported Languages__\n")
	for _, v := range voices {
		label := v.Label
		if label == "" {
			label = v.Code
		}
		fmt.Fprintf(&b, "**%s:** `%s`\n", label, v.Code)
	}
	ic.reply(r, i, b.String())
}

// reply answers i with the first part of text and sends the remaining parts
// to the interaction's channel.
func (ic *InfoCommands) reply(r discord.Responder, i *discordgo.InteractionCreate, text string) {
	parts := definition.SplitMessage(text, definition.MaxMessageLength)
	discord.RespondText(r, i, parts[0])
	if len(parts) == 1 || ic.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	for _, part := range parts[1:] {
		if err := ic.sender.SendText(ctx, i.ChannelID, part); err != nil {
			ic.log.Warn("failed to send message part", "channel_id", i.ChannelID, "err", err)
			return
		}
	}
}
