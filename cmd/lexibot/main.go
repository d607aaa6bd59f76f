// Command lexibot is the main entry point for the lexibot Discord dictionary
// bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lexibot/internal/app"
	"github.com/MrWong99/lexibot/internal/config"
	discordbot "github.com/MrWong99/lexibot/internal/discord"
	"github.com/MrWong99/lexibot/internal/observe"
	"github.com/MrWong99/lexibot/pkg/dictionary"
	"github.com/MrWong99/lexibot/pkg/dictionary/freedict"
	"github.com/MrWong99/lexibot/pkg/dictionary/owlbot"
	"github.com/MrWong99/lexibot/pkg/provider/tts"
	"github.com/MrWong99/lexibot/pkg/provider/tts/coqui"
	"github.com/MrWong99/lexibot/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/lexibot/pkg/provider/tts/googletranslate"
	oaitts "github.com/MrWong99/lexibot/pkg/provider/tts/openai"
	"github.com/MrWong99/lexibot/pkg/translate"
	"github.com/MrWong99/lexibot/pkg/translate/anyllm"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	watch := flag.Bool("watch", true, "reload log level and settings defaults when the config file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "lexibot: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lexibot: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lexibot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.Server.LogLevel.SlogLevel())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("lexibot starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Discord bot ───────────────────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:         cfg.Discord.Token,
		GuildID:       cfg.Discord.GuildID,
		ManagerRoleID: cfg.Discord.ManagerRoleID,
	})
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	providers.Voice = bot.Platform()
	providers.Replier = bot.Replier()

	opts := []app.Option{
		app.WithLogLevel(logLevel),
		app.WithMetricsHandler(telemetry.Handler),
	}
	if *watch {
		opts = append(opts, app.WithConfigWatch(*configPath))
	}
	application, err := app.New(ctx, cfg, bot, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		_ = bot.Close()
		return 1
	}

	if *watch {
		go reloadOnHangup(ctx, application)
	}

	slog.Info("lexibot ready, press Ctrl+C to shut down")

	code := 0
	if err := application.Run(ctx); err != nil {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation package.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Dictionary ────────────────────────────────────────────────────────────

	reg.RegisterDictionary("freedict", func(entry config.ProviderEntry) (dictionary.Provider, error) {
		var opts []freedict.Option
		if entry.BaseURL != "" {
			opts = append(opts, freedict.WithBaseURL(entry.BaseURL))
		}
		return freedict.New(opts...), nil
	})

	reg.RegisterDictionary("owlbot", func(entry config.ProviderEntry) (dictionary.Provider, error) {
		var opts []owlbot.Option
		if entry.BaseURL != "" {
			opts = append(opts, owlbot.WithBaseURL(entry.BaseURL))
		}
		p, err := owlbot.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("googletranslate", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []googletranslate.Option
		if entry.BaseURL != "" {
			opts = append(opts, googletranslate.WithEndpoint(entry.BaseURL))
		}
		return googletranslate.New(opts...), nil
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		if v := entry.OptionString("voice"); v != "" {
			opts = append(opts, oaitts.WithVoice(v))
		}
		if entry.Timeout > 0 {
			opts = append(opts, oaitts.WithTimeout(entry.Timeout))
		}
		p, err := oaitts.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if f := entry.OptionString("output_format"); f != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(f))
		}
		p, err := elevenlabs.New(entry.APIKey, entry.OptionString("voice"), opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if v := entry.OptionString("voice"); v != "" {
			opts = append(opts, coqui.WithSpeaker(v))
		}
		if m := entry.OptionString("api_mode"); m != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(m)))
		}
		if entry.Timeout > 0 {
			opts = append(opts, coqui.WithTimeout(entry.Timeout))
		}
		p, err := coqui.New(entry.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── Translation ───────────────────────────────────────────────────────────
	// Every any-llm backend shares the same pattern: optional APIKey +
	// optional BaseURL. Local servers (ollama, llamacpp, llamafile) only use
	// BaseURL.
	for _, providerName := range config.ValidProviderNames["translate"] {
		reg.RegisterTranslator(providerName, func(entry config.ProviderEntry) (translate.Translator, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}
}

// buildProviders instantiates the configured providers from reg. The voice
// platform and replier are filled in once the Discord bot is connected.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	for _, entry := range cfg.Dictionary.Providers {
		p, err := reg.CreateDictionary(entry)
		if err != nil {
			return nil, fmt.Errorf("create dictionary provider %q: %w", entry.Name, err)
		}
		ps.Dictionaries = append(ps.Dictionaries, app.DictionaryEntry{ID: entry.Name, Provider: p, Timeout: entry.Timeout})
		slog.Info("provider created", "kind", "dictionary", "name", entry.Name)
	}

	if name := cfg.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.TTS.Entry())
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	if name := cfg.Translate.Name; name != "" {
		p, err := reg.CreateTranslator(cfg.Translate.Entry())
		if err != nil {
			return nil, fmt.Errorf("create translator %q: %w", name, err)
		}
		ps.Translator = p
		slog.Info("provider created", "kind", "translate", "name", name, "model", cfg.Translate.Model)
	}

	return ps, nil
}

// reloadOnHangup re-reads the config file on every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, a *app.App) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := a.ReloadConfig()
			if err != nil {
				slog.Warn("SIGHUP reload failed", "err", err)
				continue
			}
			slog.Info("SIGHUP reload", "changed", changed)
		}
	}
}
