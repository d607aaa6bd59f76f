package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DefaultsChanged is set when settings.defaults differ.
	DefaultsChanged bool

	// RestartRequired lists top-level sections that changed but only take
	// effect after a restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if !sameDefaults(old.Settings.Defaults, new.Settings.Defaults) {
		d.DefaultsChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Discord != new.Discord {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	if !sameDictionary(old.Dictionary, new.Dictionary) {
		d.RestartRequired = append(d.RestartRequired, "dictionary")
	}
	if !sameTTS(old.TTS, new.TTS) {
		d.RestartRequired = append(d.RestartRequired, "tts")
	}
	if old.Translate != new.Translate {
		d.RestartRequired = append(d.RestartRequired, "translate")
	}
	if old.Settings.Backend != new.Settings.Backend || old.Settings.DSN != new.Settings.DSN {
		d.RestartRequired = append(d.RestartRequired, "settings")
	}
	return d
}

func sameDictionary(a, b DictionaryConfig) bool {
	if a.Timeout != b.Timeout || a.Cache != b.Cache || len(a.Providers) != len(b.Providers) {
		return false
	}
	for i := range a.Providers {
		pa, pb := a.Providers[i], b.Providers[i]
		if pa.Name != pb.Name || pa.APIKey != pb.APIKey || pa.BaseURL != pb.BaseURL ||
			pa.Model != pb.Model || pa.Timeout != pb.Timeout {
			return false
		}
	}
	return true
}

func sameDefaults(a, b SettingsDefaults) bool {
	return a.TextToSpeech == b.TextToSpeech && a.Language == b.Language &&
		a.ShowDefinitionSource == b.ShowDefinitionSource && a.AutoTranslate == b.AutoTranslate &&
		slices.Equal(a.DictionaryAPIs, b.DictionaryAPIs)
}

func sameTTS(a, b TTSConfig) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL &&
		a.Model == b.Model && a.Timeout == b.Timeout && a.Voice == b.Voice &&
		a.DefaultVoiceCode == b.DefaultVoiceCode
}
