// Package mock provides in-memory implementations of [audio.Platform] and
// [audio.Connection] for unit tests.
//
// All mocks are safe for concurrent use. They record every call so tests can
// assert on call counts and arguments, and expose fields that control return
// values.
//
// Typical usage:
//
//	p := mock.NewPlatform()
//	p.JoinErr = &audio.InsufficientPermissionsError{Missing: []string{"Speak"}}
//	_, err := p.Join(ctx, "guild-1", "voice-1")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/lexibot/pkg/audio"
)

// ─── Connection ───────────────────────────────────────────────────────────────

// Connection is a mock [audio.Connection].
//
// By default Play returns immediately. Set PlayDuration to simulate playback
// time, or set Block to make Play wait until its context is cancelled or
// [Connection.Release] is called.
type Connection struct {
	mu sync.Mutex

	channelID string

	// PlayErr is returned by Play when non-nil (after any simulated playback).
	PlayErr error

	// PlayDuration makes Play sleep (cancellably) before returning.
	PlayDuration time.Duration

	// Block makes Play wait for ctx cancellation or Release.
	Block bool

	// Started receives a value each time Play begins, if non-nil.
	Started chan []byte

	// OnPlay, if set, is called with true when Play begins and false when it
	// returns.
	OnPlay func(playing bool)

	release chan struct{}

	// PlayCalls records the PCM buffers passed to Play, in order.
	PlayCalls [][]byte

	// Cancelled counts Play calls that ended because ctx was cancelled.
	Cancelled int
}

var _ audio.Connection = (*Connection)(nil)

// NewConnection returns a Connection bound to channelID.
func NewConnection(channelID string) *Connection {
	return &Connection{channelID: channelID, release: make(chan struct{}, 64)}
}

// ChannelID implements [audio.Connection].
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Play implements [audio.Connection].
func (c *Connection) Play(ctx context.Context, pcm []byte) error {
	c.mu.Lock()
	c.PlayCalls = append(c.PlayCalls, pcm)
	block, dur, playErr, started, onPlay := c.Block, c.PlayDuration, c.PlayErr, c.Started, c.OnPlay
	c.mu.Unlock()

	if onPlay != nil {
		onPlay(true)
		defer onPlay(false)
	}

	if started != nil {
		started <- pcm
	}

	var timer <-chan time.Time
	switch {
	case block:
	case dur > 0:
		t := time.NewTimer(dur)
		defer t.Stop()
		timer = t.C
	default:
		return playErr
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		c.Cancelled++
		c.mu.Unlock()
		return ctx.Err()
	case <-timer:
	case <-c.release:
	}
	return playErr
}

// Release lets one blocked Play call complete normally.
func (c *Connection) Release() {
	c.release <- struct{}{}
}

// PlayCount returns the number of Play calls so far.
func (c *Connection) PlayCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.PlayCalls)
}

// CancelledCount returns the number of cancelled Play calls.
func (c *Connection) CancelledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Cancelled
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// JoinCall records the arguments of a Join or Leave call.
type JoinCall struct {
	GuildID   string
	ChannelID string
}

// Platform is a mock [audio.Platform]. It keeps one [Connection] per voice
// channel so tests can reach into the connection a worker is playing on.
type Platform struct {
	mu sync.Mutex

	// JoinErr is returned by Join when non-nil.
	JoinErr error

	// JoinErrFor overrides JoinErr for specific channel IDs.
	JoinErrFor map[string]error

	// NewConn customises connections created on first join. Defaults to
	// [NewConnection].
	NewConn func(channelID string) *Connection

	conns     map[string]*Connection
	connected map[string]string // guildID → channelID

	JoinCalls  []JoinCall
	LeaveCalls []JoinCall
}

var _ audio.Platform = (*Platform)(nil)

// NewPlatform returns an empty Platform.
func NewPlatform() *Platform {
	return &Platform{
		conns:     make(map[string]*Connection),
		connected: make(map[string]string),
	}
}

// Join implements [audio.Platform].
func (p *Platform) Join(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.JoinCalls = append(p.JoinCalls, JoinCall{GuildID: guildID, ChannelID: channelID})
	if err, ok := p.JoinErrFor[channelID]; ok && err != nil {
		return nil, err
	}
	if p.JoinErr != nil {
		return nil, p.JoinErr
	}

	p.connected[guildID] = channelID
	return p.connLocked(channelID), nil
}

// Leave implements [audio.Platform].
func (p *Platform) Leave(_ context.Context, guildID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.LeaveCalls = append(p.LeaveCalls, JoinCall{GuildID: guildID, ChannelID: channelID})
	if cur, ok := p.connected[guildID]; !ok || cur != channelID {
		return audio.ErrNotConnected
	}
	delete(p.connected, guildID)
	return nil
}

// Conn returns (creating if needed) the connection for channelID.
func (p *Platform) Conn(channelID string) *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connLocked(channelID)
}

func (p *Platform) connLocked(channelID string) *Connection {
	c, ok := p.conns[channelID]
	if !ok {
		if p.NewConn != nil {
			c = p.NewConn(channelID)
		} else {
			c = NewConnection(channelID)
		}
		p.conns[channelID] = c
	}
	return c
}

// Connected reports the channel the platform is joined to in guildID.
func (p *Platform) Connected(guildID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.connected[guildID]
	return ch, ok
}

// JoinCount returns the number of Join calls.
func (p *Platform) JoinCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.JoinCalls)
}

// LeaveCount returns the number of Leave calls.
func (p *Platform) LeaveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.LeaveCalls)
}
