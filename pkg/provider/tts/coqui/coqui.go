// Package coqui provides a TTS provider backed by a self-hosted Coqui TTS
// server. Both the standard server (GET /api/tts) and the XTTS v2 API server
// (POST /tts_to_audio/) are supported; either returns a WAV file which is
// passed through unchanged for the transcoder.
//
// Typical usage:
//
//	p, err := coqui.New("http://localhost:5002", coqui.WithSpeaker("p225"))
//	wav, err := p.Synthesize(ctx, "cat, 1, noun, a small feline", "en-US")
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second
	xttsEndpoint   = "/tts_to_audio/"
	apiTTSEndpoint = "/api/tts"
)

// APIMode selects which Coqui server API the provider targets.
type APIMode string

const (
	// APIModeStandard targets the standard Coqui TTS server image. This is the
	// default.
	APIModeStandard APIMode = "standard"

	// APIModeXTTS targets the Coqui XTTS v2 API server.
	APIModeXTTS APIMode = "xtts"
)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithAPIMode sets the server API mode.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) { p.apiMode = mode }
}

// WithSpeaker sets the speaker ID (standard mode) or reference speaker WAV
// (XTTS mode).
func WithSpeaker(speaker string) Option {
	return func(p *Provider) { p.speaker = speaker }
}

// Provider implements tts.Provider backed by a Coqui TTS server.
type Provider struct {
	serverURL  string
	speaker    string
	apiMode    APIMode
	httpClient *http.Client
}

// New creates a Provider for the server at serverURL (e.g.
// "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// xttsRequest is the JSON body sent to POST /tts_to_audio/.
type xttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return "coqui" }

// Synthesize implements tts.Provider. Only the primary language subtag of
// voiceCode is forwarded; Coqui models are not region aware.
func (p *Provider) Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error) {
	lang := tts.Language(voiceCode)
	if lang == "" {
		lang = "en"
	}

	var (
		req *http.Request
		err error
	)
	if p.apiMode == APIModeXTTS {
		req, err = p.xttsRequest(ctx, text, lang)
	} else {
		req, err = p.standardRequest(ctx, text, lang)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: coqui: create request: %w", tts.ErrSynthesisFailed, err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coqui: %s %s: %w", tts.ErrSynthesisFailed, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: coqui: %s %s returned status %d", tts.ErrSynthesisFailed, req.Method, req.URL.Path, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coqui: read WAV response: %w", tts.ErrSynthesisFailed, err)
	}
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: coqui: response is not a WAV file", tts.ErrSynthesisFailed)
	}
	return wav, nil
}

func (p *Provider) standardRequest(ctx context.Context, text, lang string) (*http.Request, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("language_id", lang)
	if p.speaker != "" {
		params.Set("speaker_id", p.speaker)
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
}

func (p *Provider) xttsRequest(ctx context.Context, text, lang string) (*http.Request, error) {
	data, err := json.Marshal(xttsRequest{Text: text, SpeakerWav: p.speaker, Language: lang})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+xttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
