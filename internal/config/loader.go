package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lexibot/internal/settings"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"dictionary": {"freedict", "owlbot"},
	"tts":        {"googletranslate", "openai", "elevenlabs", "coqui"},
	"translate":  {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays LEXIBOT_* environment
// variables, fills defaults and validates the result. An empty document is
// allowed so the bot can run from the environment alone.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	expandSecrets(cfg)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandSecrets substitutes ${VAR} references in API keys so secrets can stay
// out of the file.
func expandSecrets(cfg *Config) {
	for i := range cfg.Dictionary.Providers {
		cfg.Dictionary.Providers[i].APIKey = os.ExpandEnv(cfg.Dictionary.Providers[i].APIKey)
	}
	cfg.TTS.APIKey = os.ExpandEnv(cfg.TTS.APIKey)
	cfg.Translate.APIKey = os.ExpandEnv(cfg.Translate.APIKey)
	cfg.Discord.Token = os.ExpandEnv(cfg.Discord.Token)
}

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if len(cfg.Dictionary.Providers) == 0 {
		cfg.Dictionary.Providers = []ProviderEntry{{Name: "freedict"}}
	}
	if cfg.Dictionary.Timeout <= 0 {
		cfg.Dictionary.Timeout = 5 * time.Second
	}
	if cfg.Dictionary.Cache.TTL <= 0 {
		cfg.Dictionary.Cache.TTL = 24 * time.Hour
	}
	if cfg.TTS.DefaultVoiceCode == "" {
		cfg.TTS.DefaultVoiceCode = "en-US"
	}
	if cfg.Settings.Backend == "" {
		cfg.Settings.Backend = BackendMemory
	}
	if cfg.Settings.Defaults.TextToSpeech == "" {
		cfg.Settings.Defaults.TextToSpeech = string(settings.PolicyFlag)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required (or set LEXIBOT_DISCORD_TOKEN)"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	seen := make(map[string]int, len(cfg.Dictionary.Providers))
	for i, p := range cfg.Dictionary.Providers {
		prefix := fmt.Sprintf("dictionary.providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[p.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of dictionary.providers[%d]", prefix, p.Name, prev))
		}
		seen[p.Name] = i
		if p.Name == "owlbot" && p.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s: owlbot requires api_key", prefix))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must not be negative", prefix))
		}
		validateProviderName("dictionary", p.Name)
	}

	validateProviderName("tts", cfg.TTS.Name)
	switch cfg.TTS.Name {
	case "openai", "elevenlabs":
		if cfg.TTS.APIKey == "" {
			errs = append(errs, fmt.Errorf("tts: %s requires api_key", cfg.TTS.Name))
		}
	case "coqui":
		if cfg.TTS.BaseURL == "" {
			errs = append(errs, errors.New("tts: coqui requires base_url"))
		}
	}
	if cfg.TTS.Name == "elevenlabs" && cfg.TTS.Voice == "" {
		errs = append(errs, errors.New("tts: elevenlabs requires voice (the voice ID)"))
	}

	validateProviderName("translate", cfg.Translate.Name)
	if cfg.Translate.Name != "" && cfg.Translate.Model == "" {
		errs = append(errs, errors.New("translate.model is required when translate.name is set"))
	}

	if !cfg.Settings.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("settings.backend %q is invalid; valid values: memory, postgres, sqlite", cfg.Settings.Backend))
	} else if cfg.Settings.Backend != BackendMemory && cfg.Settings.DSN == "" {
		errs = append(errs, fmt.Errorf("settings.dsn is required for backend %q", cfg.Settings.Backend))
	}
	if _, err := settings.Validate(settings.KeyTextToSpeech, cfg.Settings.Defaults.TextToSpeech); err != nil {
		errs = append(errs, fmt.Errorf("settings.defaults.text_to_speech: %w", err))
	}
	for _, id := range cfg.Settings.Defaults.DictionaryAPIs {
		if _, ok := seen[strings.ToLower(id)]; !ok {
			errs = append(errs, fmt.Errorf("settings.defaults.dictionary_apis: %q is not in dictionary.providers", id))
		}
	}

	return errors.Join(errs...)
}

// SettingsDefaults converts the configured defaults to [settings.Settings].
func (c *Config) SettingsDefaults() settings.Settings {
	return settings.Settings{
		TextToSpeech:         settings.TextToSpeechPolicy(strings.ToLower(c.Settings.Defaults.TextToSpeech)),
		Language:             c.Settings.Defaults.Language,
		ShowDefinitionSource: c.Settings.Defaults.ShowDefinitionSource,
		DictionaryAPIs:       settings.ParseList(strings.Join(c.Settings.Defaults.DictionaryAPIs, ",")),
		AutoTranslate:        c.Settings.Defaults.AutoTranslate,
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
