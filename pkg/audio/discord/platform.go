// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It encodes
// lexibot's 48 kHz stereo PCM to Opus and streams it in 20 ms frames.
//
// The platform requires an active *discordgo.Session owned by the bot layer.
// Discord allows one voice connection per guild, so the platform keeps at
// most one [Connection] per guild and reuses it when asked to join the
// channel it is already in.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/lexibot/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// requiredPermissions are checked before joining, in the order they are
// reported to the user.
var requiredPermissions = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionViewChannel, "View Channel"},
	{discordgo.PermissionVoiceConnect, "Connect"},
	{discordgo.PermissionVoiceSpeak, "Speak"},
}

// Platform implements [audio.Platform] using discordgo voice connections.
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session

	mu    sync.Mutex
	conns map[string]*Connection // guildID → connection

	// permissions and join default to the session; overridden in tests.
	permissions func(channelID string) (int64, error)
	join        func(guildID, channelID string) (*discordgo.VoiceConnection, error)
}

// New creates a Platform for the given session.
func New(session *discordgo.Session) *Platform {
	p := &Platform{
		session: session,
		conns:   make(map[string]*Connection),
	}
	p.permissions = p.sessionPermissions
	p.join = func(guildID, channelID string) (*discordgo.VoiceConnection, error) {
		// mute=false (we send audio), deaf=true (we never listen).
		return session.ChannelVoiceJoin(guildID, channelID, false, true)
	}
	return p
}

// Join implements [audio.Platform]. An existing connection to the same channel
// is reused; a connection to a different channel in the same guild is
// replaced.
func (p *Platform) Join(ctx context.Context, guildID, channelID string) (audio.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perms, err := p.permissions(channelID)
	if err != nil {
		return nil, fmt.Errorf("discord: resolve permissions for %q: %w", channelID, err)
	}
	if missing := missingPermissions(perms); len(missing) > 0 {
		return nil, &audio.InsufficientPermissionsError{ChannelID: channelID, Missing: missing}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[guildID]; ok {
		if c.ChannelID() == channelID {
			return c, nil
		}
		if err := c.close(); err != nil {
			slog.Warn("discord: disconnect previous voice channel", "guild_id", guildID, "err", err)
		}
		delete(p.conns, guildID)
	}

	vc, err := p.join(guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}
	c, err := newConnection(vc, channelID)
	if err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("discord: create connection: %w", err)
	}
	p.conns[guildID] = c
	slog.Debug("discord: joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return c, nil
}

// Leave implements [audio.Platform].
func (p *Platform) Leave(_ context.Context, guildID, channelID string) error {
	p.mu.Lock()
	c, ok := p.conns[guildID]
	if !ok || c.ChannelID() != channelID {
		p.mu.Unlock()
		return audio.ErrNotConnected
	}
	delete(p.conns, guildID)
	p.mu.Unlock()

	if err := c.close(); err != nil {
		return fmt.Errorf("discord: leave voice channel %q: %w", channelID, err)
	}
	slog.Debug("discord: left voice channel", "guild_id", guildID, "channel_id", channelID)
	return nil
}

// ActiveConnections returns the number of guilds with a live voice connection.
func (p *Platform) ActiveConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close disconnects every voice connection.
func (p *Platform) Close() error {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*Connection)
	p.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Platform) sessionPermissions(channelID string) (int64, error) {
	if p.session.State == nil || p.session.State.User == nil {
		return 0, errors.New("session state not ready")
	}
	return p.session.State.UserChannelPermissions(p.session.State.User.ID, channelID)
}

// missingPermissions returns the names of required permissions absent from
// perms. Administrator implies everything.
func missingPermissions(perms int64) []string {
	if perms&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for _, rp := range requiredPermissions {
		if perms&rp.bit == 0 {
			missing = append(missing, rp.name)
		}
	}
	return missing
}
