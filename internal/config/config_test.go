package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/provider/translate"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/types"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  static_dir: ./web

providers:
  llm:
    name: groq
    api_key: gsk-test
    model: llama-3.3-70b-versatile
  tts:
    name: murf
    api_key: murf-test
  tts_fallbacks:
    - name: elevenlabs
      api_key: el-test
      options:
        voice_male: pNInz6obpgDQGcFmaJgB
  translate:
    name: murf
    api_key: murf-test

voices:
  male: [en-US-ken, en-US-marcus]
  female: [en-US-natalie]

debate:
  turn_delay: 500ms

progress:
  backend: sqlite
  path: ./chronos.db

portrait:
  enabled: true
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Providers.LLM.Name != "groq" {
		t.Errorf("providers.llm.name: got %q, want %q", cfg.Providers.LLM.Name, "groq")
	}
	if len(cfg.Providers.TTSFallbacks) != 1 || cfg.Providers.TTSFallbacks[0].Name != "elevenlabs" {
		t.Errorf("providers.tts_fallbacks: got %+v", cfg.Providers.TTSFallbacks)
	}
	if got := cfg.Providers.TTSFallbacks[0].Options["voice_male"]; got != "pNInz6obpgDQGcFmaJgB" {
		t.Errorf("tts_fallbacks[0].options.voice_male: got %v", got)
	}
	if !slices.Equal(cfg.Voices.Male, []string{"en-US-ken", "en-US-marcus"}) {
		t.Errorf("voices.male: got %v", cfg.Voices.Male)
	}
	if cfg.Debate.TurnDelay != 500*time.Millisecond {
		t.Errorf("debate.turn_delay: got %s, want 500ms", cfg.Debate.TurnDelay)
	}
	if cfg.Progress.Backend != config.ProgressSQLite {
		t.Errorf("progress.backend: got %q", cfg.Progress.Backend)
	}
	if cfg.Progress.Key != config.DefaultProgressKey {
		t.Errorf("progress.key: got %q, want default", cfg.Progress.Key)
	}
	if !cfg.Portrait.Enabled {
		t.Error("portrait.enabled: got false")
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	for _, doc := range []string{"", "{}"} {
		cfg, err := config.LoadFromReader(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", doc, err)
		}
		if cfg.Server.ListenAddr != ":8080" {
			t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
		}
		if cfg.Debate.TurnDelay != config.DefaultTurnDelay {
			t.Errorf("turn_delay: got %s, want %s", cfg.Debate.TurnDelay, config.DefaultTurnDelay)
		}
		if cfg.Progress.Backend != config.ProgressMemory {
			t.Errorf("progress.backend: got %q", cfg.Progress.Backend)
		}
		if cfg.Progress.Key != "historica-progress" {
			t.Errorf("progress.key: got %q", cfg.Progress.Key)
		}
		if len(cfg.Voices.Male) != 5 || len(cfg.Voices.Female) != 5 {
			t.Errorf("voices: got %d male, %d female; want 5 and 5", len(cfg.Voices.Male), len(cfg.Voices.Female))
		}
		if cfg.Voices.Male[0] != "en-US-ken" || cfg.Voices.Female[0] != "en-US-natalie" {
			t.Errorf("first voices: got %q and %q", cfg.Voices.Male[0], cfg.Voices.Female[0])
		}
	}
}

func TestLoadFromReader_DefaultVoicesAreCopied(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Voices.Male[0] = "mutated"
	if config.DefaultMaleVoices[0] != "en-US-ken" {
		t.Error("mutating a loaded config changed the package defaults")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_ExpandsEnvironment(t *testing.T) {
	t.Setenv("CHRONOS_TEST_GROQ_KEY", "gsk-from-env")
	doc := "providers:\n  llm:\n    name: groq\n    api_key: ${CHRONOS_TEST_GROQ_KEY}\n"
	cfg, err := config.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "gsk-from-env" {
		t.Errorf("api_key: got %q, want %q", cfg.Providers.LLM.APIKey, "gsk-from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CHRONOS_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHRONOS_TEST_DOTENV", "")
	os.Unsetenv("CHRONOS_TEST_DOTENV")

	if err := config.LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("CHRONOS_TEST_DOTENV"); got != "from-file" {
		t.Errorf("CHRONOS_TEST_DOTENV: got %q, want %q", got, "from-file")
	}
}

// ── Registry ──────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	reg := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nonexistent"}

	if _, err := reg.CreateLLM(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("llm: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateTTS(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("tts: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateTranslate(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("translate: expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	reg := config.NewRegistry()
	wantLLM, wantTTS, wantTr := &stubLLM{}, &stubTTS{}, &stubTranslate{}
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("stub", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return wantLLM, nil
	})
	reg.RegisterTTS("stub", func(config.ProviderEntry) (tts.Provider, error) { return wantTTS, nil })
	reg.RegisterTranslate("stub", func(config.ProviderEntry) (translate.Provider, error) { return wantTr, nil })

	entry := config.ProviderEntry{Name: "stub", Model: "m"}
	if got, err := reg.CreateLLM(entry); err != nil || got != wantLLM {
		t.Errorf("CreateLLM: got %v, %v", got, err)
	}
	if gotEntry.Model != "m" {
		t.Errorf("factory received model %q, want %q", gotEntry.Model, "m")
	}
	if got, err := reg.CreateTTS(entry); err != nil || got != wantTTS {
		t.Errorf("CreateTTS: got %v, %v", got, err)
	}
	if got, err := reg.CreateTranslate(entry); err != nil || got != wantTr {
		t.Errorf("CreateTranslate: got %v, %v", got, err)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(e config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := config.NewRegistry()
	for _, n := range []string{"openai", "groq", "anthropic"} {
		reg.RegisterLLM(n, func(config.ProviderEntry) (llm.Provider, error) { return nil, nil })
	}
	want := []string{"anthropic", "groq", "openai"}
	if got := reg.Names("llm"); !slices.Equal(got, want) {
		t.Errorf("Names(llm) = %v, want %v", got, want)
	}
	if got := reg.Names("tts"); len(got) != 0 {
		t.Errorf("Names(tts) = %v, want empty", got)
	}
}

// ── Stub implementations ──────────────────────────────────────────────────────

type stubLLM struct{}

func (s *stubLLM) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{}, nil
}
func (s *stubLLM) Capabilities() types.ModelCapabilities { return types.ModelCapabilities{} }

type stubTTS struct{}

func (s *stubTTS) Synthesize(context.Context, string, tts.VoiceProfile) (*tts.Audio, error) {
	return &tts.Audio{}, nil
}

type stubTranslate struct{}

func (s *stubTranslate) Translate(_ context.Context, _ string, texts []string) ([]string, error) {
	return texts, nil
}
