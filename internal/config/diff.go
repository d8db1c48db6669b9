package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider,
// progress and server address changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	VoicesChanged bool
	NewVoices     VoicesConfig

	TurnDelayChanged bool

	// RestartRequired lists top-level sections that changed but are not
	// applied at runtime.
	RestartRequired []string
}

// Empty reports whether d carries no change at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.VoicesChanged && !d.TurnDelayChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Voices.Male, new.Voices.Male) || !slices.Equal(old.Voices.Female, new.Voices.Female) {
		d.VoicesChanged = true
		d.NewVoices = new.Voices
	}

	if old.Debate.TurnDelay != new.Debate.TurnDelay {
		d.TurnDelayChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr || old.Server.StaticDir != new.Server.StaticDir {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Progress != new.Progress {
		d.RestartRequired = append(d.RestartRequired, "progress")
	}
	if old.Portrait != new.Portrait {
		d.RestartRequired = append(d.RestartRequired, "portrait")
	}

	return d
}

func providersEqual(a, b ProvidersConfig) bool {
	if !entryEqual(a.LLM, b.LLM) || !entryEqual(a.TTS, b.TTS) || !entryEqual(a.Translate, b.Translate) {
		return false
	}
	return slices.EqualFunc(a.TTSFallbacks, b.TTSFallbacks, entryEqual)
}

// entryEqual ignores Options.
func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}
