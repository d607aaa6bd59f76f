package commands

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/definition"
)

type fakeQueue struct {
	mu       sync.Mutex
	requests []definition.Request
	enqErr   error
	stopOK   bool
	stopped  []string
	nextErr  error
	nexts    []string
	canSpeak bool
}

func (q *fakeQueue) Enqueue(_ context.Context, req definition.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqErr != nil {
		return q.enqErr
	}
	q.requests = append(q.requests, req)
	return nil
}

func (q *fakeQueue) Stop(channelID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = append(q.stopped, channelID)
	return q.stopOK
}

func (q *fakeQueue) Next(voiceChannelID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nexts = append(q.nexts, voiceChannelID)
	return q.nextErr
}

func (q *fakeQueue) CanSpeak() bool { return q.canSpeak }

// voiceMap maps user IDs to voice channels.
type voiceMap map[string]string

func (v voiceMap) UserVoiceChannel(_, userID string) string { return v[userID] }

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func boolOpt(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

// interaction builds a guild slash command interaction from user-1 in
// text-1.
func interaction(name string, member *discordgo.Member, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	if member == nil {
		member = &discordgo.Member{}
	}
	if member.User == nil {
		member.User = &discordgo.User{ID: "user-1"}
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild-1",
		ChannelID: "text-1",
		Member:    member,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}
