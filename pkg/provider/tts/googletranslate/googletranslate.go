// Package googletranslate implements [tts.Provider] using the public Google
// Translate speech endpoint. It needs no API key and returns MP3.
//
// The endpoint rejects long inputs, so text is split into chunks of at most
// 200 runes (preferably at a space) and the MP3 responses are concatenated.
// MP3 frames are self-delimiting, so the concatenation decodes as one stream.
package googletranslate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/hegedustibor/htgo-tts/voices"
)

const (
	defaultEndpoint = "https://translate.google.com/translate_tts"
	maxChunkRunes   = 200
)

// Compile-time interface assertions.
var (
	_ tts.Provider    = (*Provider)(nil)
	_ tts.VoiceLister = (*Provider)(nil)
)

// supportedVoices lists the language codes offered for autocomplete.
var supportedVoices = []tts.Voice{
	{Code: voices.English, Label: "English (US)"},
	{Code: voices.EnglishUK, Label: "English (UK)"},
	{Code: voices.Spanish, Label: "Spanish"},
	{Code: voices.French, Label: "French"},
	{Code: voices.German, Label: "German"},
	{Code: voices.Portuguese, Label: "Portuguese"},
	{Code: voices.Russian, Label: "Russian"},
	{Code: voices.Japanese, Label: "Japanese"},
}

// Option is a functional option for [New].
type Option func(*Provider)

// WithEndpoint overrides the speech endpoint (used by tests).
func WithEndpoint(u string) Option {
	return func(p *Provider) { p.endpoint = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider synthesizes speech through Google Translate.
type Provider struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements [tts.Provider].
func (p *Provider) Name() string { return "googletranslate" }

// Voices implements [tts.VoiceLister].
func (p *Provider) Voices() []tts.Voice {
	return append([]tts.Voice(nil), supportedVoices...)
}

// Synthesize implements [tts.Provider].
func (p *Provider) Synthesize(ctx context.Context, text, voiceCode string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: googletranslate: empty text", tts.ErrSynthesisFailed)
	}
	if voiceCode == "" {
		voiceCode = voices.English
	}

	var buf bytes.Buffer
	chunks := splitText(text, maxChunkRunes)
	for i, chunk := range chunks {
		audio, err := p.fetch(ctx, chunk, voiceCode, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("%w: googletranslate: chunk %d: %w", tts.ErrSynthesisFailed, i, err)
		}
		buf.Write(audio)
	}
	return buf.Bytes(), nil
}

func (p *Provider) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("total", strconv.Itoa(total))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("textlen", strconv.Itoa(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

// splitText cuts text into chunks of at most limit runes, breaking at the
// last space inside the window when there is one.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		if s := strings.TrimSpace(string(runes[:cut])); s != "" {
			chunks = append(chunks, s)
		}
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if s := strings.TrimSpace(string(runes)); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
