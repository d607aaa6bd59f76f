package resilience

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates an empty [TTSFallback].
func NewTTSFallback(cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup[tts.Provider](cfg)}
}

// Add registers p after the already registered providers.
func (f *TTSFallback) Add(p tts.Provider) {
	f.group.Add(p.Name(), p)
}

// Name implements [tts.Provider].
func (f *TTSFallback) Name() string {
	return strings.Join(f.group.Names(), ", ")
}

// Synthesize implements [tts.Provider] using the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error) {
	audio, _, err := ExecuteWithResult(ctx, f.group, func(ctx context.Context, p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, voiceCode)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrSynthesisFailed, err)
	}
	return audio, nil
}
