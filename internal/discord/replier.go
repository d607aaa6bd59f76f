package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/definition"
)

var _ definition.Replier = (*ChannelReplier)(nil)

// MessageSender posts plain messages. *discordgo.Session satisfies it.
type MessageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelReplier delivers definition replies as ordinary channel messages.
type ChannelReplier struct {
	sender MessageSender
}

// NewChannelReplier creates a ChannelReplier.
func NewChannelReplier(sender MessageSender) *ChannelReplier {
	return &ChannelReplier{sender: sender}
}

// SendText implements [definition.Replier]. text must already fit in one
// Discord message.
func (r *ChannelReplier) SendText(ctx context.Context, channelID, text string) error {
	if _, err := r.sender.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message to %s: %w", channelID, err)
	}
	return nil
}
