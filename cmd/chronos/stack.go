package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/chronos/internal/chat"
	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/progress"
	"github.com/MrWong99/chronos/internal/speech"
)

// stack is the provider and storage wiring shared by serve and chat.
type stack struct {
	providers  *providers
	completion *completion.Client
	backend    progress.Backend
	progress   *progress.Store
}

func newStack(ctx context.Context, cfg *config.Config, m *observe.Metrics) (*stack, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		return nil, err
	}

	backend, err := progress.Open(ctx, cfg.Progress)
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	slog.Info("progress store opened", "backend", cfg.Progress.Backend, "key", cfg.Progress.Key)

	return &stack{
		providers:  ps,
		completion: completion.New(ps.LLM, completion.WithMetrics(m), completion.WithProviderName(ps.LLMName)),
		backend:    backend,
		progress:   progress.NewStore(backend, cfg.Progress.Key),
	}, nil
}

// sessionDeps returns the dependencies of every chat session.
func (s *stack) sessionDeps(cfg *config.Config, m *observe.Metrics) chat.Deps {
	return chat.Deps{
		Completion:     s.completion,
		Progress:       s.progress,
		TTS:            s.providers.TTS,
		TTSName:        s.providers.TTSName,
		Translator:     s.providers.Translator,
		TranslatorName: s.providers.TranslatorName,
		Voices:         speech.CatalogFromConfig(cfg.Voices),
		TurnDelay:      cfg.Debate.TurnDelay,
		Metrics:        m,
	}
}

func (s *stack) Close() error {
	return s.backend.Close()
}
