// Package config provides the configuration schema, loader, and provider registry
// for the chronos server.
package config

import "time"

// LogLevel controls log verbosity for the chronos server.
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

// ProgressBackend selects where learner progress documents are persisted.
type ProgressBackend string

const (
	// ProgressMemory keeps progress in process memory only.
	ProgressMemory ProgressBackend = "memory"

	// ProgressFile stores one JSON document per key in a directory.
	ProgressFile ProgressBackend = "file"

	// ProgressSQLite stores documents in a SQLite database file.
	ProgressSQLite ProgressBackend = "sqlite"

	// ProgressPostgres stores documents in a PostgreSQL JSONB table.
	ProgressPostgres ProgressBackend = "postgres"
)

// IsValid reports whether b is a recognised progress backend.
func (b ProgressBackend) IsValid() bool {
	switch b {
	case ProgressMemory, ProgressFile, ProgressSQLite, ProgressPostgres:
		return true
	}
	return false
}

// DefaultProgressKey is the document key used when progress.key is unset.
const DefaultProgressKey = "historica-progress"

// DefaultTurnDelay is the pause between debate speakers.
const DefaultTurnDelay = 800 * time.Millisecond

// DefaultMaleVoices and DefaultFemaleVoices are the hosted voice lists used
// when the voices section is empty.
var (
	DefaultMaleVoices   = []string{"en-US-ken", "en-US-marcus", "en-US-wayne", "en-US-terrell", "en-GB-clint"}
	DefaultFemaleVoices = []string{"en-US-natalie", "en-US-aria", "en-US-ruby", "en-US-liv", "en-GB-hazel"}
)

// Config is the root configuration structure for chronos.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Voices    VoicesConfig    `yaml:"voices"`
	Debate    DebateConfig    `yaml:"debate"`
	Progress  ProgressConfig  `yaml:"progress"`
	Portrait  PortraitConfig  `yaml:"portrait"`
}

// ServerConfig holds network and logging settings for the chronos server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// StaticDir, when set, is served at / as the browser front-end.
	StaticDir string `yaml:"static_dir"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation serves each
// concern. Each entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`

	// TTSFallbacks are tried in order when the primary hosted voice fails.
	// Speech falls back to the browser only after all of them failed.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`

	Translate ProviderEntry `yaml:"translate"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "groq", "murf").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// ${VAR} references are expanded from the environment.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// VoicesConfig lists hosted voice identifiers per gender. The first entry
// of each list is the voice used for that gender.
type VoicesConfig struct {
	Male   []string `yaml:"male"`
	Female []string `yaml:"female"`
}

// DebateConfig tunes multi-figure conversations.
type DebateConfig struct {
	// TurnDelay is the pause between two consecutive debate speakers.
	TurnDelay time.Duration `yaml:"turn_delay"`
}

// ProgressConfig selects the progress persistence backend.
type ProgressConfig struct {
	Backend ProgressBackend `yaml:"backend"`

	// Path is the directory (file) or database file (sqlite).
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string (postgres).
	DSN string `yaml:"dsn"`

	// Key is the document key. Defaults to [DefaultProgressKey].
	Key string `yaml:"key"`
}

// PortraitConfig controls the figure portrait lookup.
type PortraitConfig struct {
	Enabled bool `yaml:"enabled"`

	// BaseURL overrides the Wikipedia API endpoint.
	BaseURL string `yaml:"base_url"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if len(c.Voices.Male) == 0 {
		c.Voices.Male = append([]string(nil), DefaultMaleVoices...)
	}
	if len(c.Voices.Female) == 0 {
		c.Voices.Female = append([]string(nil), DefaultFemaleVoices...)
	}
	if c.Debate.TurnDelay == 0 {
		c.Debate.TurnDelay = DefaultTurnDelay
	}
	if c.Progress.Backend == "" {
		c.Progress.Backend = ProgressMemory
	}
	if c.Progress.Key == "" {
		c.Progress.Key = DefaultProgressKey
	}
}
