// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs streaming WebSocket API. The whole utterance is sent as one text
// message followed by a flush, and the streamed MP3 chunks are collected into
// a single buffer.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/coder/websocket"
)

const (
	defaultBaseURL   = "wss://api.elevenlabs.io/v1/text-to-speech"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "mp3_44100_128"
)

var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithOutputFormat sets the audio output format. It must be an MP3 format so
// that the result can be transcoded.
func WithOutputFormat(format string) Option {
	return func(p *Provider) { p.outputFormat = format }
}

// WithBaseURL overrides the WebSocket base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	voiceID      string
	model        string
	outputFormat string
	baseURL      string
}

// New creates a new ElevenLabs Provider speaking with voiceID. apiKey and
// voiceID must be non-empty.
func New(apiKey, voiceID string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		voiceID:      voiceID,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent for the text and for the flush.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
	Flush         bool           `json:"flush,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// audioResponse is the JSON message received from ElevenLabs.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded MP3
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return "elevenlabs" }

// Synthesize implements tts.Provider. voiceCode is forwarded as the
// language_code hint; the voice itself is fixed at construction.
func (p *Provider) Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error) {
	conn, _, err := websocket.Dial(ctx, p.streamURL(voiceCode), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: elevenlabs: dial: %w", tts.ErrSynthesisFailed, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 22)

	// ElevenLabs requires a single space as the opening text.
	msgs := []textMessage{
		{Text: " ", XiAPIKey: p.apiKey, VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}},
		{Text: text + " ", Flush: true},
		{Text: ""},
	}
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("%w: elevenlabs: marshal: %w", tts.ErrSynthesisFailed, err)
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return nil, fmt.Errorf("%w: elevenlabs: send: %w", tts.ErrSynthesisFailed, err)
		}
	}

	audio, err := readAudio(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: elevenlabs: %w", tts.ErrSynthesisFailed, err)
	}
	conn.Close(websocket.StatusNormalClosure, "done")
	return audio, nil
}

// readAudio collects audio chunks until the server marks the stream final or
// closes the connection normally.
func readAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var buf bytes.Buffer
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && buf.Len() > 0 {
				return buf.Bytes(), nil
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("server error: %s %s", resp.Error, resp.Message)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk: %w", err)
			}
			buf.Write(chunk)
		}
		if resp.IsFinal {
			if buf.Len() == 0 {
				return nil, errors.New("empty audio stream")
			}
			return buf.Bytes(), nil
		}
	}
}

// streamURL constructs the WebSocket URL for the configured voice.
func (p *Provider) streamURL(voiceCode string) string {
	q := url.Values{}
	q.Set("model_id", p.model)
	q.Set("output_format", p.outputFormat)
	if lang := tts.Language(voiceCode); lang != "" {
		q.Set("language_code", lang)
	}
	return fmt.Sprintf("%s/%s/stream-input?%s", p.baseURL, url.PathEscape(p.voiceID), q.Encode())
}
