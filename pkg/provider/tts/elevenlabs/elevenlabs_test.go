package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/coder/websocket"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "voice"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("key", ""); err == nil {
		t.Error("expected error for empty voiceID")
	}
}

func TestStreamURL(t *testing.T) {
	t.Parallel()

	p, err := New("key", "voice-123", WithModel("eleven_turbo_v2_5"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := url.Parse(p.streamURL("en-GB"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/voice-123/stream-input") {
		t.Errorf("path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("model_id") != "eleven_turbo_v2_5" {
		t.Errorf("model_id = %q", q.Get("model_id"))
	}
	if q.Get("language_code") != "en" {
		t.Errorf("language_code = %q, want en", q.Get("language_code"))
	}
	if q.Get("output_format") != defaultOutputFmt {
		t.Errorf("output_format = %q", q.Get("output_format"))
	}
}

// newFakeServer starts a WebSocket server that records the text messages it
// receives and answers with the given responses.
func newFakeServer(t *testing.T, responses []audioResponse, got *[]textMessage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for range 3 {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var m textMessage
			_ = json.Unmarshal(data, &m)
			*got = append(*got, m)
		}
		for _, resp := range responses {
			b, _ := json.Marshal(resp)
			if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_Synthesize(t *testing.T) {
	t.Parallel()

	var got []textMessage
	srv := newFakeServer(t, []audioResponse{
		{Audio: base64.StdEncoding.EncodeToString([]byte("ID3-part1"))},
		{Audio: base64.StdEncoding.EncodeToString([]byte("-part2"))},
		{IsFinal: true},
	}, &got)

	p, err := New("key", "voice", WithBaseURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio, err := p.Synthesize(context.Background(), "cat, 1, noun, a small feline", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3-part1-part2" {
		t.Errorf("audio = %q", audio)
	}
	if len(got) != 3 {
		t.Fatalf("server received %d messages, want 3", len(got))
	}
	if got[0].XiAPIKey != "key" || got[0].Text != " " {
		t.Errorf("opening message = %+v", got[0])
	}
	if !got[1].Flush || !strings.HasPrefix(got[1].Text, "cat, 1, noun") {
		t.Errorf("text message = %+v", got[1])
	}
	if got[2].Text != "" {
		t.Errorf("closing message = %+v", got[2])
	}
}

func TestProvider_Synthesize_ServerError(t *testing.T) {
	t.Parallel()

	var got []textMessage
	srv := newFakeServer(t, []audioResponse{{Error: "quota_exceeded", Message: "out of credits"}}, &got)

	p, err := New("key", "voice", WithBaseURL("ws"+strings.TrimPrefix(srv.URL, "http")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Synthesize(context.Background(), "cat", "en")
	if err == nil || !strings.Contains(err.Error(), "quota_exceeded") {
		t.Fatalf("err = %v, want quota error", err)
	}
	if !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Errorf("err does not wrap ErrSynthesisFailed: %v", err)
	}
}

func TestProvider_Synthesize_DialFailure(t *testing.T) {
	t.Parallel()

	p, err := New("key", "voice", WithBaseURL("ws://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "cat", "en"); !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}
