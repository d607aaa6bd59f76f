// Package discord provides the Discord bot layer for lexibot. It owns the
// discordgo.Session lifecycle, routes slash command interactions to
// registered handlers, delivers definition replies to text channels and
// checks who may change channel settings.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/pkg/audio"
	discordaudio "github.com/MrWong99/lexibot/pkg/audio/discord"
)

// ErrNotReady is returned by [Bot.Ping] before the gateway has delivered its
// READY event or after the connection dropped.
var ErrNotReady = errors.New("discord: gateway not ready")

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string

	// GuildID registers commands for one guild only. Empty registers them
	// globally.
	GuildID string

	// ManagerRoleID grants settings access in addition to the Manage
	// Channels permission.
	ManagerRoleID string
}

// Bot owns the Discord gateway connection and routes interactions
// to registered command handlers.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	platform  *discordaudio.Platform
	router    *CommandRouter
	perms     *PermissionChecker
	replier   *ChannelReplier
	guildID   string
	commands  []*discordgo.ApplicationCommand
	closeOnce sync.Once
}

// New creates a Bot, connects to Discord, and registers the interaction handler.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	// Voice states are needed to find the requester's voice channel.
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b := &Bot{
		session:  session,
		platform: discordaudio.New(session),
		router:   NewCommandRouter(),
		perms:    NewPermissionChecker(cfg.ManagerRoleID),
		replier:  NewChannelReplier(session),
		guildID:  cfg.GuildID,
	}

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	return b, nil
}

// Platform returns the audio.Platform for voice channel connections.
func (b *Bot) Platform() audio.Platform {
	return b.platform
}

// Replier returns the text channel replier used for definition replies.
func (b *Bot) Replier() *ChannelReplier {
	return b.replier
}

// GuildID returns the guild commands are registered for.
func (b *Bot) GuildID() string {
	return b.guildID
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Router returns the command router for registering handlers.
func (b *Bot) Router() *CommandRouter {
	return b.router
}

// Permissions returns the permission checker.
func (b *Bot) Permissions() *PermissionChecker {
	return b.perms
}

// UserVoiceChannel returns the voice channel userID is connected to in
// guildID, or "" when the user is not in voice or the state cache does not
// know them.
func (b *Bot) UserVoiceChannel(guildID, userID string) string {
	s := b.Session()
	if s == nil || s.State == nil || guildID == "" {
		return ""
	}
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// Ping reports [ErrNotReady] while the gateway connection is down.
func (b *Bot) Ping(_ context.Context) error {
	s := b.Session()
	if s == nil {
		return ErrNotReady
	}
	s.RLock()
	ready := s.DataReady
	s.RUnlock()
	if !ready {
		return ErrNotReady
	}
	return nil
}

// Run registers slash commands with the Discord API and blocks until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.RLock()
	appID := b.session.State.User.ID
	b.mu.RUnlock()

	cmds := b.router.ApplicationCommands()
	if len(cmds) > 0 {
		registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, cmds)
		if err != nil {
			return fmt.Errorf("discord: register commands: %w", err)
		}
		b.mu.Lock()
		b.commands = registered
		b.mu.Unlock()
		slog.Info("discord commands registered", "count", len(registered), "guild_id", b.guildID)
	}

	<-ctx.Done()
	return nil
}

// Close leaves every voice channel, unregisters guild commands and
// disconnects from Discord.
func (b *Bot) Close() error {
	var errs []error
	b.closeOnce.Do(func() {
		if err := b.platform.Close(); err != nil {
			errs = append(errs, fmt.Errorf("discord: close voice: %w", err))
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		// Global commands take up to an hour to propagate, so only guild
		// commands are removed on shutdown.
		if b.guildID != "" && len(b.commands) > 0 {
			appID := b.session.State.User.ID
			for _, cmd := range b.commands {
				if err := b.session.ApplicationCommandDelete(appID, b.guildID, cmd.ID); err != nil {
					slog.Warn("discord: failed to delete command", "name", cmd.Name, "err", err)
				}
			}
		}

		if err := b.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("discord: close session: %w", err))
		}
		slog.Info("discord bot closed")
	})
	return errors.Join(errs...)
}
