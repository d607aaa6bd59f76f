// Package config provides the configuration schema, loader, provider registry
// and file watcher for lexibot.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l onto the equivalent [slog.Level]. Unknown values map to
// [slog.LevelInfo].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SettingsBackend selects where per-guild and per-channel settings live.
type SettingsBackend string

const (
	BackendMemory   SettingsBackend = "memory"
	BackendPostgres SettingsBackend = "postgres"
	BackendSQLite   SettingsBackend = "sqlite"
)

// IsValid reports whether b is a recognised backend.
func (b SettingsBackend) IsValid() bool {
	switch b {
	case BackendMemory, BackendPostgres, BackendSQLite:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded with
// [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Discord    DiscordConfig    `yaml:"discord"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	TTS        TTSConfig        `yaml:"tts"`
	Translate  TranslateConfig  `yaml:"translate"`
	Settings   SettingsConfig   `yaml:"settings"`
}

// ServerConfig holds the HTTP listener (health and metrics) and logging.
type ServerConfig struct {
	// ListenAddr is the TCP address of the health/metrics server.
	ListenAddr string   `yaml:"listen_addr" env:"LEXIBOT_LISTEN_ADDR"`
	LogLevel   LogLevel `yaml:"log_level" env:"LEXIBOT_LOG_LEVEL"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DiscordConfig holds the bot credentials.
type DiscordConfig struct {
	Token string `yaml:"token" env:"LEXIBOT_DISCORD_TOKEN"`

	// GuildID registers slash commands in a single guild (instant updates,
	// useful during development). Empty registers them globally.
	GuildID string `yaml:"guild_id" env:"LEXIBOT_DISCORD_GUILD_ID"`

	// ManagerRoleID grants settings access in addition to Manage Channels.
	ManagerRoleID string `yaml:"manager_role_id" env:"LEXIBOT_DISCORD_MANAGER_ROLE_ID"`
}

// ProviderEntry is the common configuration block for every pluggable
// provider. Name selects the constructor in the [Registry].
type ProviderEntry struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Timeout bounds one call to the provider. Zero uses the section default.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// OptionString returns Options[key] as a string, or "" when unset.
func (e ProviderEntry) OptionString(key string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return ""
}

// DictionaryConfig lists the dictionary providers in the order they are
// tried.
type DictionaryConfig struct {
	Providers []ProviderEntry `yaml:"providers"`

	// Timeout is the per-provider default. Default: 5s.
	Timeout time.Duration `yaml:"timeout"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig enables the Redis lookup cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" env:"LEXIBOT_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"LEXIBOT_REDIS_PASSWORD"`
	TTL           time.Duration `yaml:"ttl"`
}

// TTSConfig selects the speech synthesizer. An empty Name disables
// text-to-speech.
type TTSConfig struct {
	Name    string        `yaml:"name" env:"LEXIBOT_TTS_PROVIDER"`
	APIKey  string        `yaml:"api_key" env:"LEXIBOT_TTS_API_KEY"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`

	// Voice is a provider-specific voice identifier (ElevenLabs voice ID,
	// OpenAI voice name, Coqui speaker).
	Voice string `yaml:"voice"`

	// DefaultVoiceCode is used when neither request nor channel pick a
	// language. Default: "en-US".
	DefaultVoiceCode string `yaml:"default_voice_code"`

	Options map[string]any `yaml:"options"`
}

// Entry converts c into the shape the [Registry] factories receive.
func (c TTSConfig) Entry() ProviderEntry {
	opts := map[string]any{"voice": c.Voice}
	for k, v := range c.Options {
		opts[k] = v
	}
	return ProviderEntry{Name: c.Name, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, Timeout: c.Timeout, Options: opts}
}

// TranslateConfig selects the optional translator. An empty Name disables
// translation.
type TranslateConfig struct {
	Name    string        `yaml:"name" env:"LEXIBOT_TRANSLATE_PROVIDER"`
	APIKey  string        `yaml:"api_key" env:"LEXIBOT_TRANSLATE_API_KEY"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Entry converts c into the shape the [Registry] factories receive.
func (c TranslateConfig) Entry() ProviderEntry {
	return ProviderEntry{Name: c.Name, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model, Timeout: c.Timeout}
}

// SettingsConfig selects the settings store and the values used when a
// guild or channel has not set anything.
type SettingsConfig struct {
	Backend SettingsBackend `yaml:"backend" env:"LEXIBOT_SETTINGS_BACKEND"`

	// DSN is the PostgreSQL connection string or the SQLite file path.
	DSN string `yaml:"dsn" env:"LEXIBOT_SETTINGS_DSN"`

	Defaults SettingsDefaults `yaml:"defaults"`
}

// SettingsDefaults are the hot-reloadable fallback settings.
type SettingsDefaults struct {
	// TextToSpeech is one of force, flag, disable. Default: flag.
	TextToSpeech         string `yaml:"text_to_speech"`
	Language             string `yaml:"language"`
	ShowDefinitionSource bool   `yaml:"show_definition_source"`

	// DictionaryAPIs orders the dictionary providers by name. Empty keeps the
	// order of dictionary.providers.
	DictionaryAPIs []string `yaml:"dictionary_apis"`
	AutoTranslate  bool     `yaml:"auto_translate"`
}
