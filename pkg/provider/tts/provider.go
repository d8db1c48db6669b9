// Package tts defines the Provider interface for hosted Text-to-Speech backends.
//
// A hosted TTS provider turns a complete utterance into an encoded audio clip
// (MP3 for Murf and ElevenLabs) that a browser can play directly. Native
// speech synthesis in the browser is not a Provider; it is the fallback the
// speech controller switches to when a Provider fails.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by providers that have no credentials. It is
// distinct from upstream failures but triggers the same native fallback.
var ErrNotConfigured = errors.New("tts: service not configured")

// VoiceProfile identifies a hosted voice.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier (e.g. "en-US-ken").
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string
}

// Audio is a synthesised clip ready for playback.
type Audio struct {
	// Data holds the encoded audio bytes.
	Data []byte

	// MIMEType describes Data (e.g. "audio/mpeg").
	MIMEType string
}

// Provider is the abstraction over any hosted TTS backend.
type Provider interface {
	// Synthesize renders text with the given voice and returns the complete
	// clip. It returns ErrNotConfigured when the backend has no credentials.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Audio, error)
}
