package chat

import (
	"context"
	"sync"

	"github.com/MrWong99/chronos/internal/speech"
	"github.com/MrWong99/chronos/pkg/provider/tts"
)

// playerSlot is the [speech.Player] a session speaks through. It forwards to
// the attached listener; with nobody attached playback completes at once.
type playerSlot struct {
	mu sync.RWMutex
	p  speech.Player
}

func (s *playerSlot) get() speech.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// swap installs p and returns the previous player.
func (s *playerSlot) swap(p speech.Player) speech.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.p
	s.p = p
	return prev
}

// clear removes p if it is still the attached player.
func (s *playerSlot) clear(p speech.Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p != p {
		return false
	}
	s.p = nil
	return true
}

func (s *playerSlot) PlayAudio(ctx context.Context, a *tts.Audio) error {
	if p := s.get(); p != nil {
		return p.PlayAudio(ctx, a)
	}
	return nil
}

func (s *playerSlot) SpeakNative(ctx context.Context, u speech.NativeUtterance) error {
	if p := s.get(); p != nil {
		return p.SpeakNative(ctx, u)
	}
	return nil
}

func (s *playerSlot) NativeVoices() []speech.NativeVoice {
	if p := s.get(); p != nil {
		return p.NativeVoices()
	}
	return nil
}

func (s *playerSlot) Stop() {
	if p := s.get(); p != nil {
		p.Stop()
	}
}
