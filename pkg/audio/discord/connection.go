package discord

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/lexibot/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// sendTimeout bounds how long a single frame may wait on a stalled voice
// websocket before playback is abandoned.
const sendTimeout = 2 * time.Second

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface.
//
// Connection is safe for concurrent use; concurrent Play calls are serialized.
type Connection struct {
	vc        *discordgo.VoiceConnection
	channelID string

	playMu sync.Mutex
	enc    *frameEncoder

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC is called during close to tear down the voice connection.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
	// speaking defaults to vc.Speaking; overridden in tests.
	speaking func(bool) error
}

// newConnection initialises a Connection for an already-joined voice channel.
func newConnection(vc *discordgo.VoiceConnection, channelID string) (*Connection, error) {
	enc, err := newFrameEncoder()
	if err != nil {
		return nil, err
	}
	return &Connection{
		vc:           vc,
		channelID:    channelID,
		enc:          enc,
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
		speaking:     vc.Speaking,
	}, nil
}

// ChannelID implements [audio.Connection].
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Play implements [audio.Connection]. The PCM buffer is cut into 20 ms frames
// (the last one zero-padded), Opus-encoded and written to the voice
// connection. ctx is checked before every frame.
func (c *Connection) Play(ctx context.Context, pcm []byte) error {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	c.setSpeaking(true)
	defer c.setSpeaking(false)

	frame := make([]byte, opusFrameBytes)
	for off := 0; off < len(pcm); off += opusFrameBytes {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(frame, pcm[off:])
		clear(frame[n:])

		opus, err := c.enc.encode(frame)
		if err != nil {
			slog.Warn("discord: opus encode error", "channel_id", c.channelID, "err", err)
			continue
		}

		timer := time.NewTimer(sendTimeout)
		select {
		case c.vc.OpusSend <- opus:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.done:
			timer.Stop()
			return audio.ErrNotConnected
		case <-timer.C:
			return errSendStalled
		}
	}
	return nil
}

// close tears down the voice connection. It is safe to call more than once;
// subsequent calls return nil.
func (c *Connection) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if c.speaking == nil {
		return
	}
	if err := c.speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "err", err)
	}
}
