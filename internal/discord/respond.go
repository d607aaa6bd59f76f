package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// RespondEphemeral sends a text response only the invoking user can see.
func RespondEphemeral(r Responder, i *discordgo.InteractionCreate, content string) {
	respond(r, i, content, discordgo.MessageFlagsEphemeral)
}

// RespondText sends a text response visible to the whole channel.
func RespondText(r Responder, i *discordgo.InteractionCreate, content string) {
	respond(r, i, content, 0)
}

func respond(r Responder, i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send response", "err", err, "ephemeral", flags != 0)
	}
}

// RespondChoices answers an autocomplete interaction. Discord accepts at
// most 25 choices; extra entries are dropped.
func RespondChoices(r Responder, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	if len(choices) > 25 {
		choices = choices[:25]
	}
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Warn("discord: failed to send autocomplete choices", "err", err)
	}
}
