package definition

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/lexibot/internal/observe"
	"github.com/MrWong99/lexibot/internal/settings"
	audiomock "github.com/MrWong99/lexibot/pkg/audio/mock"
	"github.com/MrWong99/lexibot/pkg/dictionary"
	dictmock "github.com/MrWong99/lexibot/pkg/dictionary/mock"
	ttsmock "github.com/MrWong99/lexibot/pkg/provider/tts/mock"
)

const (
	testGuild = "guild-1"
	testText  = "text-1"
	testVoice = "voice-1"
)

type message struct {
	channelID string
	text      string
}

// recordingReplier captures every SendText call.
type recordingReplier struct {
	mu   sync.Mutex
	msgs []message
}

func (r *recordingReplier) SendText(_ context.Context, channelID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message{channelID: channelID, text: text})
	return nil
}

func (r *recordingReplier) messages() []message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.msgs)
}

// waitMessages waits until at least n messages were sent.
func (r *recordingReplier) waitMessages(t *testing.T, n int) []message {
	t.Helper()
	waitFor(t, func() bool { return len(r.messages()) >= n })
	return r.messages()
}

type passthrough struct{}

func (passthrough) Transcode(b []byte) ([]byte, error) { return b, nil }

type staticSettings settings.Settings

func (s staticSettings) Resolve(context.Context, string, string) (settings.Settings, error) {
	return settings.Settings(s), nil
}

// logRecorder is a slog.Handler that keeps every message.
type logRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, r.Message)
	h.mu.Unlock()
	return nil
}

func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *logRecorder) WithGroup(string) slog.Handler      { return h }

func (h *logRecorder) has(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Contains(h.msgs, msg)
}

type testEnv struct {
	m    *Manager
	dict *dictmock.Provider

	// chain replaces dict as the manager's dictionary when set.
	chain dictionary.Provider

	speech  *ttsmock.Provider
	voice   *audiomock.Platform
	replier *recordingReplier
	logs    *logRecorder
}

// blockingVoice makes every connection block in Play until released or
// cancelled, announcing each start on conn.Started.
func blockingVoice(p *audiomock.Platform) {
	p.NewConn = func(channelID string) *audiomock.Connection {
		c := audiomock.NewConnection(channelID)
		c.Block = true
		c.Started = make(chan []byte, 16)
		return c
	}
}

func newTestEnv(t *testing.T, setup func(*testEnv), opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		dict: &dictmock.Provider{
			ProviderName: "Owlbot",
			Definitions: map[string][]dictionary.Definition{
				"cat":  {{WordType: "noun", Text: "a small feline"}},
				"dog":  {{WordType: "noun", Text: "a loyal canine"}},
				"bird": {{WordType: "noun", Text: "a feathered flyer"}, {WordType: "verb", Text: "to watch birds"}},
			},
		},
		speech:  &ttsmock.Provider{Audio: []byte{1, 2, 3, 4}},
		voice:   audiomock.NewPlatform(),
		replier: &recordingReplier{},
		logs:    &logRecorder{},
	}
	if setup != nil {
		setup(env)
	}

	met, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	opts = append([]Option{WithLogger(slog.New(env.logs)), WithMetrics(met)}, opts...)
	var dict dictionary.Provider = env.dict
	if env.chain != nil {
		dict = env.chain
	}
	m, err := New(Deps{
		Dictionary: dict,
		Replier:    env.replier,
		Speech:     env.speech,
		Transcoder: passthrough{},
		Voice:      env.voice,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.m = m

	t.Cleanup(func() {
		_ = m.Close()
		if env.logs.has("voice occupancy underflow") {
			t.Error("voice occupancy went below zero")
		}
	})
	return env
}

func ttsRequest(word string) Request {
	return Request{
		RequesterID:    "user-1",
		GuildID:        testGuild,
		TextChannelID:  testText,
		VoiceChannelID: testVoice,
		Word:           word,
		TextToSpeech:   true,
	}
}

func textRequest(word string) Request {
	return Request{
		RequesterID:   "user-1",
		GuildID:       testGuild,
		TextChannelID: testText,
		Word:          word,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitStarted(t *testing.T, c *audiomock.Connection) {
	t.Helper()
	select {
	case <-c.Started:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for playback to start")
	}
}
