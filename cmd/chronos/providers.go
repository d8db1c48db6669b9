package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/resilience"
	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/provider/llm/anyllm"
	"github.com/MrWong99/chronos/pkg/provider/llm/openai"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	translatemurf "github.com/MrWong99/chronos/pkg/provider/translate/murf"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/provider/tts/elevenlabs"
	ttsmurf "github.com/MrWong99/chronos/pkg/provider/tts/murf"
)

// providers holds the instantiated backends. Any of them may be nil; the
// completion client, speech controller and web handlers degrade on nil.
type providers struct {
	LLM     llm.Provider
	LLMName string

	TTS     tts.Provider
	TTSName string

	Translator     translate.Provider
	TranslatorName string
}

// registerBuiltinProviders wires every bundled provider factory into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("groq", func(entry config.ProviderEntry) (llm.Provider, error) {
		p, err := openai.NewGroq(entry.APIKey, entry.Model, openaiOptions(entry)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		p, err := openai.New(entry.APIKey, entry.Model, openaiOptions(entry)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// anthropic, gemini, deepseek and mistral share the same pattern:
	// optional APIKey + optional BaseURL.
	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
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

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("murf", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsmurf.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsmurf.WithBaseURL(entry.BaseURL))
		}
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, ttsmurf.WithSampleRate(rate))
		}
		return ttsmurf.New(entry.APIKey, opts...), nil
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...), nil
	})

	// ── Translation ───────────────────────────────────────────────────────────

	reg.RegisterTranslate("murf", func(entry config.ProviderEntry) (translate.Provider, error) {
		var opts []translatemurf.Option
		if entry.BaseURL != "" {
			opts = append(opts, translatemurf.WithBaseURL(entry.BaseURL))
		}
		return translatemurf.New(entry.APIKey, opts...), nil
	})

	for _, kind := range []string{"llm", "tts", "translate"} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

func openaiOptions(entry config.ProviderEntry) []openai.Option {
	var opts []openai.Option
	if entry.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(entry.BaseURL))
	}
	if org := optString(entry.Options, "organization"); org != "" {
		opts = append(opts, openai.WithOrganization(org))
	}
	if d, err := time.ParseDuration(optString(entry.Options, "timeout")); err == nil && d > 0 {
		opts = append(opts, openai.WithTimeout(d))
	}
	return opts
}

// buildProviders instantiates all providers named in cfg using the registry.
// Unregistered names are skipped with a warning so the service still starts
// with browser speech and no translation.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providers, error) {
	ps := &providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("unknown provider, skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.LLM, ps.LLMName = p, name
			slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("unknown provider, skipping", "kind", "tts", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ps.TTS, ps.TTSName = p, name
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	if ps.TTS != nil && len(cfg.Providers.TTSFallbacks) > 0 {
		chain := resilience.NewTTSFallback(ps.TTS, ps.TTSName, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.TTSFallbacks {
			p, err := reg.CreateTTS(entry)
			if errors.Is(err, config.ErrProviderNotRegistered) {
				slog.Warn("unknown provider, skipping", "kind", "tts_fallback", "name", entry.Name)
				continue
			} else if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
			}
			chain.AddFallback(entry.Name, p, voiceMapper(entry.Options))
		}
		ps.TTS = chain
		slog.Info("tts failover enabled", "backends", chain.Backends())
	}

	if name := cfg.Providers.Translate.Name; name != "" {
		p, err := reg.CreateTranslate(cfg.Providers.Translate)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("unknown provider, skipping", "kind", "translate", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create translate provider %q: %w", name, err)
		} else {
			ps.Translator, ps.TranslatorName = p, name
			slog.Info("provider created", "kind", "translate", "name", name)
		}
	}

	return ps, nil
}

// voiceMapper builds the voice translation of a fallback TTS backend from
// its "voices" option, a map from primary voice id to backend voice id.
// "default_voice" is used for ids missing from the map.
func voiceMapper(opts map[string]any) resilience.VoiceMapper {
	table, _ := opts["voices"].(map[string]any)
	fallback := optString(opts, "default_voice")
	if len(table) == 0 && fallback == "" {
		return nil
	}
	return func(v tts.VoiceProfile) tts.VoiceProfile {
		if id, ok := table[v.ID].(string); ok && id != "" {
			return tts.VoiceProfile{ID: id, Name: v.Name}
		}
		if fallback != "" {
			return tts.VoiceProfile{ID: fallback, Name: v.Name}
		}
		return v
	}
}
