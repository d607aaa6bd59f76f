// Package definition implements the Definition Response Manager: one FIFO
// worker queue per text channel that looks up words, replies in text and,
// when asked, speaks the answer in the requester's voice channel.
//
// Cross-queue state is limited to two structures. [Occupancy] counts, per
// voice channel, the queued or playing text-to-speech requests that need the
// bot connected; the bot leaves a voice channel when its count drops to zero.
// A per-guild lock serializes the join, play and leave sequence so that two
// queues never speak in the same guild at once. The occupancy lock is never
// held while waiting for a guild lock.
//
// Within a text channel replies are produced strictly in enqueue order.
// [Manager.Next] skips the current playback in a voice channel,
// [Manager.Stop] empties one text channel's queue and silences it.
package definition

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/lexibot/internal/observe"
	"github.com/MrWong99/lexibot/internal/settings"
	"github.com/MrWong99/lexibot/pkg/audio"
	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/google/uuid"
)

const (
	defaultVoice       = "en-US"
	defaultSendTimeout = 10 * time.Second
)

// Replier delivers text to a channel.
type Replier interface {
	SendText(ctx context.Context, channelID, text string) error
}

// Transcoder converts synthesizer output to PCM the voice connection can
// stream. *audio.Transcoder satisfies it.
type Transcoder interface {
	Transcode(data []byte) ([]byte, error)
}

// Translator translates definition text.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// SettingsResolver yields the effective settings for a text channel.
// *settings.Resolver satisfies it.
type SettingsResolver interface {
	Resolve(ctx context.Context, guildID, channelID string) (settings.Settings, error)
}

// Deps are the collaborators of a [Manager]. Dictionary and Replier are
// required. Text-to-speech is available only when Speech, Transcoder and
// Voice are all set.
type Deps struct {
	Dictionary dictionary.Provider
	Replier    Replier
	Speech     tts.Provider
	Transcoder Transcoder
	Voice      audio.Platform
}

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics sets the metric instruments. Defaults to observe.DefaultMetrics().
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// WithSettings sets the channel settings source. Without it every channel
// uses the "flag" text-to-speech policy.
func WithSettings(s SettingsResolver) Option {
	return func(m *Manager) { m.settings = s }
}

// WithTranslator enables translation for channels with auto_translate on:
// the word is looked up in English and the definitions are translated to
// the request's Language.
func WithTranslator(t Translator) Option {
	return func(m *Manager) { m.translator = t }
}

// WithDefaultVoice sets the voice code used when neither the request nor the
// channel names one. Defaults to "en-US".
func WithDefaultVoice(code string) Option {
	return func(m *Manager) { m.defaultVoice = code }
}

// WithSendTimeout bounds each text reply and voice disconnect. Defaults to 10s.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Manager) { m.sendTimeout = d }
}

// Manager routes definition requests to per-channel queues. Construct it once
// with [New] and share it between command handlers; it is safe for concurrent
// use.
type Manager struct {
	deps         Deps
	log          *slog.Logger
	metrics      *observe.Metrics
	settings     SettingsResolver
	translator   Translator
	defaultVoice string
	sendTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	occupancy *Occupancy
	locks     guildLocks

	mu     sync.Mutex
	queues map[string]*channelQueue
	closed bool

	connMu    sync.Mutex
	connected map[string]string // guild ID → voice channel ID

	workers sync.WaitGroup
	leaves  sync.WaitGroup
}

// New creates a Manager.
func New(deps Deps, opts ...Option) (*Manager, error) {
	if deps.Dictionary == nil {
		return nil, errors.New("definition: dictionary provider is required")
	}
	if deps.Replier == nil {
		return nil, errors.New("definition: replier is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		deps:         deps,
		log:          slog.Default(),
		defaultVoice: defaultVoice,
		sendTimeout:  defaultSendTimeout,
		ctx:          ctx,
		cancel:       cancel,
		occupancy:    NewOccupancy(),
		queues:       make(map[string]*channelQueue),
		connected:    make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m, nil
}

// Occupancy exposes the voice occupancy tracker for inspection.
func (m *Manager) Occupancy() *Occupancy { return m.occupancy }

// CanSpeak reports whether text-to-speech collaborators are configured.
func (m *Manager) CanSpeak() bool {
	return m.deps.Speech != nil && m.deps.Transcoder != nil && m.deps.Voice != nil
}

// Enqueue validates req, applies the channel's text-to-speech policy and
// appends it to the queue of req.TextChannelID. It never waits for the
// request to be processed.
//
// A text-to-speech request without a voice channel is downgraded to a text
// reply; callers should reject such requests before calling Enqueue.
func (m *Manager) Enqueue(ctx context.Context, req Request) error {
	if err := ValidateWord(req.Word); err != nil {
		return err
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	s := m.resolveSettings(ctx, req)
	req.TextToSpeech = s.TextToSpeech.Apply(req.TextToSpeech, req.VoiceChannelID != "") &&
		req.VoiceChannelID != "" && m.CanSpeak()
	if req.TextToSpeech {
		req.VoiceCode = firstNonEmpty(req.VoiceCode, s.Language, m.defaultVoice)
	} else {
		req.VoiceCode = ""
	}

	if s.AutoTranslate {
		req.Language = firstNonEmpty(req.Language, s.Language)
	}

	itemCtx, cancel := context.WithCancelCause(m.ctx)
	it := &item{
		req:            req,
		ctx:            itemCtx,
		cancel:         cancel,
		reserved:       req.TextToSpeech,
		showSource:     s.ShowDefinitionSource,
		dictionaryAPIs: s.DictionaryAPIs,
		autoTranslate:  s.AutoTranslate,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel(ErrClosed)
		return ErrClosed
	}
	// Gauges go up before the worker can see the item and count it down.
	bg := context.Background()
	m.metrics.QueueDepth.Add(bg, 1)
	if it.reserved {
		m.occupancy.Increment(req.VoiceChannelID)
		m.metrics.VoiceReservations.Add(bg, 1)
	}
	q := m.queueLocked(req.TextChannelID)
	q.push(it)
	m.mu.Unlock()

	m.metrics.RecordRequest(bg, req.TextToSpeech, req.Reverse)
	m.log.Debug("definition request enqueued",
		"request_id", req.ID, "channel_id", req.TextChannelID, "word", req.Word,
		"tts", req.TextToSpeech, "voice_channel_id", req.VoiceChannelID)
	return nil
}

// Stop empties the queue of channelID and cancels its in-flight request.
// Every discarded text-to-speech request gives back its voice reservation.
// It reports whether there was anything to stop.
func (m *Manager) Stop(channelID string) bool {
	m.mu.Lock()
	q := m.queues[channelID]
	m.mu.Unlock()
	if q == nil {
		return false
	}

	dropped, active := q.clear(errStopped)
	m.discard(dropped)
	if len(dropped) == 0 && !active {
		return false
	}
	m.log.Info("channel queue stopped", "channel_id", channelID, "discarded", len(dropped), "active", active)
	return true
}

// Next skips the playback currently running in voiceChannelID. The queue
// continues with its next request. It returns [ErrNoActivePlayback] when no
// queue is playing in that channel.
func (m *Manager) Next(voiceChannelID string) error {
	if voiceChannelID == "" {
		return ErrNoActivePlayback
	}
	m.mu.Lock()
	queues := slices.Collect(maps.Values(m.queues))
	m.mu.Unlock()

	for _, q := range queues {
		if q.skip(voiceChannelID) {
			m.log.Info("playback skipped", "channel_id", q.channelID, "voice_channel_id", voiceChannelID)
			return nil
		}
	}
	return ErrNoActivePlayback
}

// QueueLength returns the number of requests waiting in channelID's backlog,
// not counting the one being processed.
func (m *Manager) QueueLength(channelID string) int {
	m.mu.Lock()
	q := m.queues[channelID]
	m.mu.Unlock()
	if q == nil {
		return 0
	}
	return q.len()
}

// Close stops every queue, waits for the workers to exit and disconnects from
// voice. Enqueue returns [ErrClosed] afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	queues := slices.Collect(maps.Values(m.queues))
	m.mu.Unlock()

	for _, q := range queues {
		m.discard(q.close())
	}
	m.workers.Wait()
	m.leaves.Wait()
	m.cancel()
	return nil
}

// queueLocked returns the queue for channelID, starting its worker on first
// use. m.mu must be held.
func (m *Manager) queueLocked(channelID string) *channelQueue {
	q, ok := m.queues[channelID]
	if ok {
		return q
	}
	q = newChannelQueue(channelID)
	m.queues[channelID] = q
	m.workers.Add(1)
	go m.run(q)
	return q
}

func (m *Manager) resolveSettings(ctx context.Context, req Request) settings.Settings {
	if m.settings == nil {
		return settings.Settings{TextToSpeech: settings.PolicyFlag}
	}
	s, err := m.settings.Resolve(ctx, req.GuildID, req.TextChannelID)
	if err != nil {
		m.log.Warn("could not resolve channel settings, using defaults", "channel_id", req.TextChannelID, "err", err)
	}
	return s
}

// discard cancels items removed from a backlog and releases their voice
// reservations.
func (m *Manager) discard(items []*item) {
	for _, it := range items {
		it.cancel(errStopped)
		m.release(it, false)
	}
	if len(items) > 0 {
		m.metrics.QueueDepth.Add(context.Background(), -int64(len(items)))
	}
}

// release gives back its voice reservation exactly once. When the count
// drops to zero the bot leaves the channel. locked reports whether the caller
// holds the guild lock; otherwise the leave happens asynchronously once the
// lock is free.
func (m *Manager) release(it *item, locked bool) {
	if !it.reserved {
		return
	}
	it.releaseOnce.Do(func() {
		guildID, voiceID := it.req.GuildID, it.req.VoiceChannelID
		n, err := m.occupancy.Decrement(voiceID)
		if err != nil {
			m.log.Error("voice occupancy underflow", "voice_channel_id", voiceID, "request_id", it.req.ID, "err", err)
			return
		}
		m.metrics.VoiceReservations.Add(context.Background(), -1)
		if n > 0 {
			return
		}
		if locked {
			m.leaveIfIdle(guildID, voiceID)
			return
		}
		m.leaves.Add(1)
		go func() {
			defer m.leaves.Done()
			lock := m.locks.get(guildID)
			if err := lock.lock(m.ctx); err != nil {
				return
			}
			defer lock.unlock()
			m.leaveIfIdle(guildID, voiceID)
		}()
	})
}

// leaveIfIdle disconnects from voiceID if no request holds it and the bot is
// connected there. The guild lock must be held.
func (m *Manager) leaveIfIdle(guildID, voiceID string) {
	if !m.occupancy.IsZero(voiceID) {
		return
	}
	m.connMu.Lock()
	cur, ok := m.connected[guildID]
	if !ok || cur != voiceID {
		m.connMu.Unlock()
		return
	}
	delete(m.connected, guildID)
	m.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
	defer cancel()
	m.metrics.VoiceConnections.Add(ctx, -1)
	if err := m.deps.Voice.Leave(ctx, guildID, voiceID); err != nil && !errors.Is(err, audio.ErrNotConnected) {
		m.log.Warn("failed to leave voice channel", "guild_id", guildID, "voice_channel_id", voiceID, "err", err)
		return
	}
	m.log.Debug("left voice channel", "guild_id", guildID, "voice_channel_id", voiceID)
}

func (m *Manager) join(ctx context.Context, guildID, voiceID string) (audio.Connection, error) {
	conn, err := m.deps.Voice.Join(ctx, guildID, voiceID)
	if err != nil {
		return nil, err
	}
	m.connMu.Lock()
	_, had := m.connected[guildID]
	m.connected[guildID] = voiceID
	m.connMu.Unlock()
	if !had {
		m.metrics.VoiceConnections.Add(ctx, 1)
	}
	return conn, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// primaryLanguage returns the lower-cased language subtag of a code such as
// "en-US".
func primaryLanguage(code string) string {
	lang, _, _ := strings.Cut(code, "-")
	return strings.ToLower(lang)
}
