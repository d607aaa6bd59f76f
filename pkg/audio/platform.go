// Package audio defines the voice-channel abstractions lexibot uses to speak
// definitions, and the PCM helpers that turn synthesizer output into something
// a voice connection can stream.
//
// The two primary abstractions are:
//
//   - [Platform] joins and leaves voice channels, one connection per guild.
//   - [Connection] is an active voice session that can play a PCM buffer.
//
// Implementations live in platform-specific adapter packages (audio/discord)
// and in audio/mock for tests.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConnected is returned by [Platform.Leave] implementations when the
// bot holds no connection for the requested guild and channel.
var ErrNotConnected = errors.New("audio: not connected")

// InsufficientPermissionsError is returned by [Platform.Join] when the bot
// lacks one or more permissions required to speak in a voice channel.
type InsufficientPermissionsError struct {
	// ChannelID is the voice channel the bot tried to join.
	ChannelID string

	// Missing lists the human-readable names of the missing permissions, in
	// the order View Channel, Connect, Speak.
	Missing []string
}

// Error implements the error interface.
func (e *InsufficientPermissionsError) Error() string {
	return fmt.Sprintf("audio: missing permissions in channel %s: %s",
		e.ChannelID, strings.Join(e.Missing, ", "))
}

// Connection is an active session on one voice channel.
//
// Implementations must be safe for concurrent use, although callers are
// expected to serialize Play calls per guild.
type Connection interface {
	// ChannelID returns the voice channel this connection is joined to.
	ChannelID() string

	// Play streams pcm (48 kHz stereo s16le, see [Discord]) to the channel and
	// blocks until the whole buffer has been sent or ctx is cancelled.
	// Cancellation is checked between frames; on cancellation Play returns
	// ctx.Err().
	Play(ctx context.Context, pcm []byte) error
}

// Platform is the entry point for a voice provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Join connects to channelID in guildID and returns the connection. If the
	// bot is already connected to that exact channel the existing connection
	// is returned. Permission problems are reported as
	// *[InsufficientPermissionsError].
	Join(ctx context.Context, guildID, channelID string) (Connection, error)

	// Leave disconnects from channelID in guildID. Returns [ErrNotConnected]
	// if the bot is not connected to that channel.
	Leave(ctx context.Context, guildID, channelID string) error
}
