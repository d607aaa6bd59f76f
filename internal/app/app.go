// Package app wires all lexibot subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves Discord interactions, the health/metrics endpoint
// and the config watcher, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithSettingsStore,
// WithMetrics, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lexibot/internal/config"
	"github.com/MrWong99/lexibot/internal/definition"
	"github.com/MrWong99/lexibot/internal/discord"
	"github.com/MrWong99/lexibot/internal/discord/commands"
	"github.com/MrWong99/lexibot/internal/health"
	"github.com/MrWong99/lexibot/internal/observe"
	"github.com/MrWong99/lexibot/internal/settings"
	"github.com/MrWong99/lexibot/pkg/audio"
	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/MrWong99/lexibot/pkg/translate"
)

// Bot is the Discord side of the application. *discord.Bot satisfies it.
type Bot interface {
	Router() *discord.CommandRouter
	Permissions() *discord.PermissionChecker
	UserVoiceChannel(guildID, userID string) string
	Ping(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
}

var _ Bot = (*discord.Bot)(nil)

// DictionaryEntry is one configured dictionary in fallback order.
type DictionaryEntry struct {
	// ID is the config name the dictionary_apis setting refers to. Empty
	// falls back to the provider's display name.
	ID       string
	Provider dictionary.Provider

	// Timeout bounds one lookup. Zero uses the section default.
	Timeout time.Duration
}

// Providers holds the collaborators built by main.go from the config
// registry. TTS and Translator may be nil.
type Providers struct {
	Dictionaries []DictionaryEntry
	TTS          tts.Provider
	Translator   translate.Translator

	// Voice and Replier come from the Discord bot.
	Voice   audio.Platform
	Replier definition.Replier
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	bot       Bot

	store          settings.Store
	resolver       *settings.Resolver
	manager        *definition.Manager
	metrics        *observe.Metrics
	metricsHandler http.Handler
	redis          RedisClient
	logLevel       *slog.LevelVar
	watchPath      string
	watcher        *config.Watcher
	server         *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSettingsStore injects a settings store instead of opening the
// configured backend.
func WithSettingsStore(s settings.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics replaces the default metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithLogLevel lets config reloads adjust the log level at runtime.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithConfigWatch polls the config file at path and applies hot-reloadable
// changes.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.watchPath = path }
}

// WithRedisClient injects the lookup cache client instead of dialing
// cfg.Dictionary.Cache.RedisAddr.
func WithRedisClient(c RedisClient) Option {
	return func(a *App) { a.redis = c }
}

// New creates an App by wiring all subsystems together and registers the
// slash commands on the bot's router.
func New(ctx context.Context, cfg *config.Config, bot Bot, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		bot:       bot,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initSettings(ctx); err != nil {
		return nil, fmt.Errorf("app: init settings: %w", err)
	}
	a.resolver = settings.NewResolver(a.store, cfg.SettingsDefaults())

	dict, err := a.buildDictionary()
	if err != nil {
		return nil, fmt.Errorf("app: init dictionary: %w", err)
	}

	var voices []tts.Voice
	var speech tts.Provider
	if providers.TTS != nil {
		voices = voiceList(providers.TTS)
		speech = a.buildSpeech(providers.TTS)
	}

	mopts := []definition.Option{
		definition.WithMetrics(a.metrics),
		definition.WithSettings(a.resolver),
		definition.WithDefaultVoice(cfg.TTS.DefaultVoiceCode),
	}
	if providers.Translator != nil {
		mopts = append(mopts, definition.WithTranslator(providers.Translator))
	}
	deps := definition.Deps{
		Dictionary: dict,
		Replier:    providers.Replier,
		Speech:     speech,
		Voice:      providers.Voice,
	}
	if speech != nil {
		deps.Transcoder = audio.NewTranscoder(audio.Discord)
	}
	a.manager, err = definition.New(deps, mopts...)
	if err != nil {
		return nil, fmt.Errorf("app: init definitions: %w", err)
	}

	router := bot.Router()
	commands.NewDefinitionCommands(a.manager, bot, voices).Register(router)
	commands.NewPlaybackCommands(a.manager, bot).Register(router)
	commands.NewSettingsCommands(a.resolver, bot.Permissions(), commands.WithDictionaries(a.dictionaryIDs())).Register(router)
	commands.NewInfoCommands(voices, speech != nil, providers.Replier).Register(router)

	if a.watchPath != "" {
		a.watcher, err = config.NewWatcher(a.watchPath, a.reload)
		if err != nil {
			return nil, fmt.Errorf("app: init config watcher: %w", err)
		}
	}

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("application ready",
		"dictionaries", len(providers.Dictionaries),
		"tts", speech != nil,
		"voices", len(voices),
		"translate", providers.Translator != nil,
		"settings_backend", cfg.Settings.Backend,
	)
	return a, nil
}

// initSettings opens the configured settings store unless one was injected.
func (a *App) initSettings(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	s, closer, err := openStore(ctx, a.cfg.Settings)
	if err != nil {
		return err
	}
	a.store = s
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return nil
}

// Handler returns the HTTP handler serving the health probes and, when
// configured, /metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.New(
		health.PingChecker("discord", a.bot),
		health.PingChecker("settings", a.store),
	).Register(mux)
	if a.metricsHandler != nil {
		mux.Handle("GET /metrics", a.metricsHandler)
	}
	return observe.Middleware(a.metrics)(mux)
}

// Manager returns the definition response manager.
func (a *App) Manager() *definition.Manager { return a.manager }

// Resolver returns the settings resolver.
func (a *App) Resolver() *settings.Resolver { return a.resolver }

// Run serves Discord interactions, the HTTP endpoint and the config watcher
// until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.bot.Run(gctx); err != nil {
			return fmt.Errorf("app: discord: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.server.Addr)
		err := a.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	return g.Wait()
}

// ErrNoConfigWatch is returned by [App.ReloadConfig] when the app was built
// without [WithConfigWatch].
var ErrNoConfigWatch = errors.New("app: config watch disabled")

// ReloadConfig re-reads the watched config file immediately instead of
// waiting for the next poll. It reports whether anything changed.
func (a *App) ReloadConfig() (bool, error) {
	if a.watcher == nil {
		return false, ErrNoConfigWatch
	}
	return a.watcher.Check()
}

// reload applies the hot-reloadable parts of a changed config.
func (a *App) reload(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.DefaultsChanged {
		a.resolver.SetDefaults(new.SettingsDefaults())
		slog.Info("settings defaults reloaded")
	}
	for _, section := range d.RestartRequired {
		slog.Warn("config section changed, restart required to apply", "section", section)
	}
}

// Shutdown stops playback, disconnects from Discord and closes the stores.
// It respects the context deadline: if ctx expires before all closers
// finish, remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		closers := append([]func() error{a.manager.Close, a.bot.Close}, a.closers...)
		slog.Info("shutting down", "closers", len(closers))

		for i, closer := range closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
