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

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":       {"groq", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral"},
	"tts":       {"murf", "elevenlabs"},
	"translate": {"murf"},
}

// LoadEnv loads KEY=VALUE pairs from the given dotenv files into the process
// environment. Variables that are already set win. Missing files are skipped;
// with no arguments ".env" in the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("no dotenv file found, using environment variables", "path", f)
				continue
			}
			return fmt.Errorf("config: load env %q: %w", f, err)
		}
		slog.Debug("loaded dotenv file", "path", f)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the environment, applies defaults and validates the result.
// An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; figures will not be able to respond")
	}
	for i, fb := range cfg.Providers.TTSFallbacks {
		prefix := fmt.Sprintf("providers.tts_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName("tts", fb.Name)
	}
	if len(cfg.Providers.TTSFallbacks) > 0 && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts_fallbacks requires providers.tts to be configured"))
	}

	// Voices
	for gender, list := range map[string][]string{"male": cfg.Voices.Male, "female": cfg.Voices.Female} {
		for i, v := range list {
			if v == "" {
				errs = append(errs, fmt.Errorf("voices.%s[%d] is empty", gender, i))
			}
		}
	}

	// Debate
	if cfg.Debate.TurnDelay < 0 {
		errs = append(errs, fmt.Errorf("debate.turn_delay %s must not be negative", cfg.Debate.TurnDelay))
	}

	// Progress
	p := cfg.Progress
	if p.Backend != "" && !p.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("progress.backend %q is invalid; valid values: memory, file, sqlite, postgres", p.Backend))
	}
	switch p.Backend {
	case ProgressFile, ProgressSQLite:
		if p.Path == "" {
			errs = append(errs, fmt.Errorf("progress.path is required when backend is %s", p.Backend))
		}
	case ProgressPostgres:
		if p.DSN == "" {
			errs = append(errs, errors.New("progress.dsn is required when backend is postgres"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
