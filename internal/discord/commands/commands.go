// Package commands implements lexibot's slash command handlers.
package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/definition"
)

// DefinitionQueue is the part of *definition.Manager the commands drive.
type DefinitionQueue interface {
	Enqueue(ctx context.Context, req definition.Request) error
	Stop(channelID string) bool
	Next(voiceChannelID string) error
	CanSpeak() bool
}

// VoiceLocator finds the voice channel a member is connected to.
// *discord.Bot satisfies it.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID string) string
}

var _ DefinitionQueue = (*definition.Manager)(nil)

// interactionUserID returns the ID of the user who triggered the interaction,
// whether it came from a guild or a DM.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// options flattens the options of a command, descending into a subcommand
// when there is one.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

func boolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionBoolean {
		return o.BoolValue()
	}
	return false
}

// focusedValue returns the partial input of the option being autocompleted.
func focusedValue(i *discordgo.InteractionCreate) string {
	for _, o := range options(i) {
		if o.Focused {
			return o.StringValue()
		}
	}
	return ""
}
