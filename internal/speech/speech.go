// Package speech turns figure replies into audible output.
//
// English text is rendered by a hosted voice ([tts.Provider]); other
// languages, and every hosted failure, use the listener's native speech
// synthesis. The [Controller] runs one utterance at a time and its Stop
// method silences both channels.
package speech

import (
	"context"
	"errors"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/pkg/provider/tts"
	"github.com/MrWong99/chronos/pkg/types"
)

// ErrPlaybackStopped is returned by a [Player] when playback ended because
// Stop was called.
var ErrPlaybackStopped = errors.New("speech: playback stopped")

// NativeVoice is one voice offered by the listener's speech synthesiser.
type NativeVoice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// NativeUtterance asks the listener to synthesise Text locally.
type NativeUtterance struct {
	Text string `json:"text"`
	// Lang is the BCP-47 locale to speak in.
	Lang string `json:"lang"`
	// Voice names the chosen [NativeVoice]; empty lets the synthesiser pick.
	Voice string  `json:"voice,omitempty"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Player is the listener's audio channel. Both play methods block until the
// clip or utterance finished, failed, or was stopped.
type Player interface {
	// PlayAudio plays a hosted clip.
	PlayAudio(ctx context.Context, a *tts.Audio) error

	// SpeakNative synthesises an utterance on the listener's side.
	SpeakNative(ctx context.Context, u NativeUtterance) error

	// NativeVoices lists the voices the listener's synthesiser offers. It
	// may be empty.
	NativeVoices() []NativeVoice

	// Stop halts hosted audio and native synthesis.
	Stop()
}

// VoiceCatalog holds the hosted voice identifiers per gender.
type VoiceCatalog struct {
	Male   []string
	Female []string
}

// CatalogFromConfig converts the configured voice lists.
func CatalogFromConfig(v config.VoicesConfig) VoiceCatalog {
	return VoiceCatalog{
		Male:   append([]string(nil), v.Male...),
		Female: append([]string(nil), v.Female...),
	}
}

// VoiceFor returns the hosted voice for g: always the first entry of the
// matching list.
func (c VoiceCatalog) VoiceFor(g types.Gender) tts.VoiceProfile {
	list := c.Male
	if g == types.GenderFemale {
		list = c.Female
	}
	if len(list) == 0 {
		return tts.VoiceProfile{}
	}
	return tts.VoiceProfile{ID: list[0], Name: list[0]}
}
