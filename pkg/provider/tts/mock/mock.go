// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Audio: []byte("ID3...")}
//	audio, _ := p.Synthesize(ctx, "cat, 1, noun, a small feline", "en-US")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text      string
	VoiceCode string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Audio is returned by every successful Synthesize call.
	Audio []byte

	// Err, if non-nil, is returned by Synthesize.
	Err error

	// Delay is waited before returning. Synthesize honours ctx during the wait.
	Delay time.Duration

	mu    sync.Mutex
	calls []SynthesizeCall
}

// Name implements tts.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error) {
	p.mu.Lock()
	p.calls = append(p.calls, SynthesizeCall{Text: text, VoiceCode: voiceCode})
	p.mu.Unlock()

	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]byte(nil), p.Audio...), nil
}

// Calls returns a copy of all recorded Synthesize calls.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SynthesizeCall(nil), p.calls...)
}

// CallCount returns the number of Synthesize calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
