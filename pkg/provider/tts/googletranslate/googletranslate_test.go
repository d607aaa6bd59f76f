package googletranslate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/hegedustibor/htgo-tts/voices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 100) // 500 runes
	chunks := splitText(long, 200)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		assert.False(t, strings.HasPrefix(c, " ") || strings.HasSuffix(c, " "), "chunk %q not trimmed", c)
	}
	assert.Equal(t, strings.TrimSpace(long), strings.Join(chunks, " "))
}

func TestSplitText_NoSpaces(t *testing.T) {
	t.Parallel()

	chunks := splitText(strings.Repeat("a", 450), 200)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 200)
	assert.Len(t, chunks[2], 50)
}

func TestProvider_Synthesize(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		langs []string
		idxs  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		langs = append(langs, q.Get("tl"))
		idxs = append(idxs, q.Get("idx"))
		mu.Unlock()
		assert.Equal(t, "tw-ob", q.Get("client"))
		_, _ = w.Write([]byte("mp3-" + q.Get("idx") + ";"))
	}))
	defer srv.Close()

	p := New(WithEndpoint(srv.URL))
	audio, err := p.Synthesize(context.Background(), strings.Repeat("hello ", 50), "fr")
	require.NoError(t, err)

	assert.Equal(t, "mp3-0;mp3-1;", string(audio))
	assert.Equal(t, []string{"fr", "fr"}, langs)
	assert.Equal(t, []string{"0", "1"}, idxs)
}

func TestProvider_Synthesize_DefaultsToEnglish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := New(WithEndpoint(srv.URL)).Synthesize(context.Background(), "cat", "")
	require.NoError(t, err)
}

func TestProvider_Synthesize_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := New(WithEndpoint(srv.URL))
	_, err := p.Synthesize(context.Background(), "cat", "en")
	require.ErrorIs(t, err, tts.ErrSynthesisFailed)
	assert.Contains(t, err.Error(), "429")

	_, err = p.Synthesize(context.Background(), "   ", "en")
	require.ErrorIs(t, err, tts.ErrSynthesisFailed)
}

func TestProvider_Voices(t *testing.T) {
	t.Parallel()

	p := New()
	v, ok := tts.FindVoice(p.Voices(), strings.ToUpper(voices.EnglishUK))
	require.True(t, ok)
	assert.Equal(t, "English (UK)", v.Label)
	assert.Len(t, p.Voices(), len(supportedVoices))
}
