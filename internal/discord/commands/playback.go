package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/discord"
)

const (
	msgStopped    = "Okay, I'll be quiet."
	msgNotTalking = "I'm not even talking!"
	msgSkipped    = "Skipped to next word."
	msgQueueEmpty = "Nothing in queue."
)

// PlaybackCommands handles /stop and /next.
type PlaybackCommands struct {
	queue DefinitionQueue
	voice VoiceLocator
}

// NewPlaybackCommands creates the /stop and /next handlers.
func NewPlaybackCommands(queue DefinitionQueue, voice VoiceLocator) *PlaybackCommands {
	return &PlaybackCommands{queue: queue, voice: voice}
}

// Register registers /stop and /next with the router.
func (pc *PlaybackCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("stop", &discordgo.ApplicationCommand{
		Name:        "stop",
		Description: "Makes the bot stop talking and removes all definition requests in this channel.",
	}, pc.handleStop)
	router.RegisterCommand("next", &discordgo.ApplicationCommand{
		Name:        "next",
		Description: "Skips the definition currently being read out in your voice channel.",
	}, pc.handleNext)
}

func (pc *PlaybackCommands) handleStop(r discord.Responder, i *discordgo.InteractionCreate) {
	if pc.queue.Stop(i.ChannelID) {
		discord.RespondText(r, i, msgStopped)
		return
	}
	discord.RespondText(r, i, msgNotTalking)
}

func (pc *PlaybackCommands) handleNext(r discord.Responder, i *discordgo.InteractionCreate) {
	voiceID := pc.voice.UserVoiceChannel(i.GuildID, interactionUserID(i))
	if err := pc.queue.Next(voiceID); err != nil {
		discord.RespondText(r, i, msgQueueEmpty)
		return
	}
	discord.RespondText(r, i, msgSkipped)
}
