package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/chronos/pkg/provider/tts"
	ttsmock "github.com/MrWong99/chronos/pkg/provider/tts/mock"
)

func newTestTTSFallback(primary, secondary *ttsmock.Provider) *TTSFallback {
	fb := NewTTSFallback(primary, "murf", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("elevenlabs", secondary, func(v tts.VoiceProfile) tts.VoiceProfile {
		return tts.VoiceProfile{ID: "xi-" + v.ID, Provider: "elevenlabs"}
	})
	return fb
}

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Provider{Audio: &tts.Audio{Data: []byte("murf"), MIMEType: "audio/mpeg"}}
	secondary := &ttsmock.Provider{}
	fb := newTestTTSFallback(primary, secondary)

	audio, err := fb.Synthesize(context.Background(), "Hello.", tts.VoiceProfile{ID: "en-US-ken"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio.Data) != "murf" {
		t.Errorf("data = %q, want murf", audio.Data)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 0 {
		t.Errorf("calls = %d/%d, want 1/0", primary.CallCount(), secondary.CallCount())
	}
	if primary.Calls[0].Voice.ID != "en-US-ken" {
		t.Errorf("primary voice = %q", primary.Calls[0].Voice.ID)
	}
}

func TestTTSFallback_FailoverMapsVoice(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("murf down")}
	secondary := &ttsmock.Provider{Audio: &tts.Audio{Data: []byte("xi"), MIMEType: "audio/mpeg"}}
	fb := newTestTTSFallback(primary, secondary)

	audio, err := fb.Synthesize(context.Background(), "Hello.", tts.VoiceProfile{ID: "en-US-ken"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio.Data) != "xi" {
		t.Errorf("data = %q, want xi", audio.Data)
	}
	if got := secondary.Calls[0].Voice.ID; got != "xi-en-US-ken" {
		t.Errorf("fallback voice = %q, want mapped voice", got)
	}
}

func TestTTSFallback_AllNotConfigured(t *testing.T) {
	primary := &ttsmock.Provider{Err: tts.ErrNotConfigured}
	secondary := &ttsmock.Provider{Err: tts.ErrNotConfigured}
	fb := newTestTTSFallback(primary, secondary)

	for i := 0; i < 5; i++ {
		_, err := fb.Synthesize(context.Background(), "Hello.", tts.VoiceProfile{ID: "v"})
		if !errors.Is(err, ErrAllFailed) {
			t.Fatalf("err = %v, want ErrAllFailed", err)
		}
		if !errors.Is(err, tts.ErrNotConfigured) {
			t.Fatalf("err = %v, want wrapped ErrNotConfigured", err)
		}
	}
	// Missing credentials never open a breaker, so every call reaches both.
	if primary.CallCount() != 5 || secondary.CallCount() != 5 {
		t.Errorf("calls = %d/%d, want 5/5", primary.CallCount(), secondary.CallCount())
	}
}

func TestTTSFallback_Backends(t *testing.T) {
	fb := newTestTTSFallback(&ttsmock.Provider{}, &ttsmock.Provider{})
	got := fb.Backends()
	if len(got) != 2 || got[0] != "murf" || got[1] != "elevenlabs" {
		t.Errorf("backends = %v", got)
	}
}
