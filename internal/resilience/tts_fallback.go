package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/chronos/pkg/provider/tts"
)

// VoiceMapper translates the requested voice into one the backend knows.
// Voice ids are provider specific, so every fallback needs its own mapping.
type VoiceMapper func(tts.VoiceProfile) tts.VoiceProfile

type ttsEntry struct {
	provider tts.Provider
	voice    VoiceMapper
}

// TTSFallback implements [tts.Provider] with failover across hosted voice
// backends. Each backend has its own circuit breaker; a backend reporting
// [tts.ErrNotConfigured] is skipped without counting against its breaker.
type TTSFallback struct {
	group *FallbackGroup[ttsEntry]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend. Requested voices are passed to the primary unchanged.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	cfg.CircuitBreaker.IsFailure = isTTSFailure
	return &TTSFallback{
		group: NewFallbackGroup(ttsEntry{provider: primary}, primaryName, cfg),
	}
}

// AddFallback registers an additional backend. A nil mapper passes voices
// through unchanged.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider, voice VoiceMapper) {
	f.group.AddFallback(name, ttsEntry{provider: provider, voice: voice})
}

// Backends returns the backend names in failover order.
func (f *TTSFallback) Backends() []string {
	return f.group.Names()
}

// Synthesize renders text with the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	return ExecuteWithResult(f.group, func(e ttsEntry) (*tts.Audio, error) {
		v := voice
		if e.voice != nil {
			v = e.voice(voice)
		}
		return e.provider.Synthesize(ctx, text, v)
	})
}

func isTTSFailure(err error) bool {
	return !errors.Is(err, tts.ErrNotConfigured) && !errors.Is(err, context.Canceled)
}
