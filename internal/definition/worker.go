package definition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/lexibot/internal/observe"
	"github.com/MrWong99/lexibot/pkg/audio"
	"github.com/MrWong99/lexibot/pkg/dictionary"
)

// run drains q until it is closed.
func (m *Manager) run(q *channelQueue) {
	defer m.workers.Done()
	for {
		it, ok := q.take()
		if !ok {
			return
		}
		m.metrics.QueueDepth.Add(context.Background(), -1)
		m.processSafely(q, it)
		m.release(it, false)
		q.finish(it)
	}
}

// processSafely keeps a panicking request from killing the worker.
func (m *Manager) processSafely(q *channelQueue, it *item) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic while processing definition request",
				"request_id", it.req.ID, "channel_id", it.req.TextChannelID,
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	m.process(q, it)
}

func (m *Manager) process(q *channelQueue, it *item) {
	req := it.req
	ctx, span := observe.StartSpan(it.ctx, "definition.process", trace.WithAttributes(
		observe.AttrRequestID.String(req.ID.String()),
		observe.AttrGuildID.String(req.GuildID),
		observe.AttrChannelID.String(req.TextChannelID),
		observe.AttrWord.String(req.Word),
		observe.AttrSpeech.Bool(req.TextToSpeech),
	))
	defer span.End()
	log := observe.WithTrace(ctx, m.log.With("request_id", req.ID, "channel_id", req.TextChannelID, "word", req.Word))

	word, from := req.Word, ""
	if it.autoTranslate {
		if en := m.toEnglish(ctx, word, log); en != "" {
			word, from = en, req.Word
		}
	}

	res := m.lookup(ctx, dictionary.Select(m.deps.Dictionary, it.dictionaryAPIs), word, log)
	if stopped(it) {
		log.Debug("request stopped before reply")
		return
	}
	defs := res.Definitions
	if it.autoTranslate {
		defs = m.translate(ctx, req, defs, log)
	}

	source := ""
	if it.showSource && len(defs) > 0 {
		source = res.Source
	}
	rep := buildReply(word, defs, req.Reverse, source, from)

	if !req.TextToSpeech {
		m.send(req.TextChannelID, rep.text, log)
		return
	}
	m.speak(ctx, q, it, rep, log)
}

// lookup queries dict. Failures are logged and yield an empty result so
// that the user still gets an answer.
func (m *Manager) lookup(ctx context.Context, dict dictionary.Provider, word string, log *slog.Logger) dictionary.Result {
	ctx, span := observe.StartSpan(ctx, "dictionary.lookup", trace.WithAttributes(
		observe.AttrProvider.String(dict.Name()),
	))
	start := time.Now()
	res, err := dictionary.Lookup(ctx, dict, word)
	observe.EndSpan(span, err)

	provider := res.Source
	if provider == "" {
		provider = dict.Name()
	}
	m.metrics.RecordLookup(ctx, provider, time.Since(start), err)
	if err != nil {
		log.Warn("dictionary lookup failed", "err", err)
		return dictionary.Result{}
	}
	return res
}

// toEnglish returns the English form of word, or "" when there is no
// translator, the translation fails or it would not change the lookup.
func (m *Manager) toEnglish(ctx context.Context, word string, log *slog.Logger) string {
	if m.translator == nil {
		return ""
	}
	en, err := m.translator.Translate(ctx, word, "en")
	if err != nil {
		log.Warn("word translation failed, looking up the original", "err", err)
		m.metrics.RecordProviderError(ctx, "translator", "translate")
		return ""
	}
	en = strings.TrimSpace(en)
	if strings.EqualFold(en, word) || ValidateWord(en) != nil {
		return ""
	}
	return en
}

func (m *Manager) translate(ctx context.Context, req Request, defs []dictionary.Definition, log *slog.Logger) []dictionary.Definition {
	if m.translator == nil || len(defs) == 0 || req.Language == "" || primaryLanguage(req.Language) == "en" {
		return defs
	}
	out := make([]dictionary.Definition, len(defs))
	for i, d := range defs {
		text, err := m.translator.Translate(ctx, d.Text, req.Language)
		if err == nil && d.WordType != "" {
			d.WordType, err = m.translator.Translate(ctx, d.WordType, req.Language)
		}
		if err != nil {
			log.Warn("translation failed, using original definitions", "language", req.Language, "err", err)
			m.metrics.RecordProviderError(ctx, "translator", "translate")
			return defs
		}
		out[i] = dictionary.Definition{WordType: d.WordType, Text: text}
	}
	return out
}

// speak synthesizes rep, joins the requester's voice channel and plays it
// while holding the guild lock. The voice reservation is released before the
// lock is given up.
func (m *Manager) speak(ctx context.Context, q *channelQueue, it *item, rep reply, log *slog.Logger) {
	req := it.req
	log = log.With("guild_id", req.GuildID, "voice_channel_id", req.VoiceChannelID)

	pcm, err := m.synthesize(ctx, rep.speech, req.VoiceCode)
	if err != nil {
		if stopped(it) {
			return
		}
		log.Error("text-to-speech failed, replying with text only", "voice", req.VoiceCode, "err", err)
		m.send(req.TextChannelID, msgSpeechProblem, log)
		m.send(req.TextChannelID, rep.text, log)
		return
	}

	lock := m.locks.get(req.GuildID)
	if err := lock.lock(ctx); err != nil {
		log.Debug("request cancelled while waiting for the voice channel", "err", err)
		return
	}
	defer lock.unlock()
	defer m.release(it, true)

	conn, err := m.join(ctx, req.GuildID, req.VoiceChannelID)
	if err != nil {
		var perm *audio.InsufficientPermissionsError
		switch {
		case errors.As(err, &perm):
			log.Warn("missing voice permissions", "missing", perm.Missing)
			m.send(req.TextChannelID, permissionMessage(perm.Missing), log)
		case stopped(it):
		default:
			log.Error("failed to join voice channel", "err", err)
			m.metrics.RecordProviderError(ctx, "voice", "voice")
			m.send(req.TextChannelID, rep.text, log)
		}
		return
	}

	m.send(req.TextChannelID, rep.text, log)

	q.bind(req.VoiceChannelID)
	err = conn.Play(ctx, pcm)
	q.unbind()

	bg := context.Background()
	switch cause := context.Cause(it.ctx); {
	case err == nil:
		m.metrics.RecordPlayback(bg, observe.PlaybackCompleted)
	case errors.Is(cause, errSkipped):
		log.Debug("playback skipped")
		m.metrics.RecordPlayback(bg, observe.PlaybackSkipped)
	case errors.Is(cause, errStopped):
		log.Debug("playback stopped")
		m.metrics.RecordPlayback(bg, observe.PlaybackStopped)
	default:
		log.Error("playback failed", "err", err)
		m.metrics.RecordPlayback(bg, observe.PlaybackFailed)
	}
}

func (m *Manager) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	ctx, span := observe.StartSpan(ctx, "tts.synthesize", trace.WithAttributes(
		observe.AttrProvider.String(m.deps.Speech.Name()),
	))
	start := time.Now()
	encoded, err := m.deps.Speech.Synthesize(ctx, text, voice)
	m.metrics.RecordSynthesis(ctx, m.deps.Speech.Name(), time.Since(start), err)
	if err != nil {
		observe.EndSpan(span, err)
		return nil, err
	}
	pcm, err := m.deps.Transcoder.Transcode(encoded)
	if err != nil {
		m.metrics.RecordProviderError(ctx, "transcoder", "transcode")
		err = fmt.Errorf("definition: transcode: %w", err)
	}
	observe.EndSpan(span, err)
	return pcm, err
}

// send delivers text, split into Discord-sized messages. Failures are logged
// only; there is nobody left to tell.
func (m *Manager) send(channelID, text string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
	defer cancel()
	for _, part := range SplitMessage(text, MaxMessageLength) {
		if err := m.deps.Replier.SendText(ctx, channelID, part); err != nil {
			log.Warn("failed to send reply", "err", err)
			return
		}
	}
}

func stopped(it *item) bool {
	return errors.Is(context.Cause(it.ctx), errStopped)
}
