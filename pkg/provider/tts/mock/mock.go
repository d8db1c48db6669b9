// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Audio: &tts.Audio{Data: []byte("mp3"), MIMEType: "audio/mpeg"}}
//	clip, _ := p.Synthesize(ctx, "Hello", voice)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/chronos/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Ctx   context.Context
	Text  string
	Voice tts.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err is nil.
	Audio *tts.Audio

	// Err, if non-nil, is returned by Synthesize.
	Err error

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns the configured clip or error.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, SynthesizeCall{Ctx: ctx, Text: text, Voice: voice})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Audio == nil {
		return &tts.Audio{Data: []byte("audio"), MIMEType: "audio/mpeg"}, nil
	}
	return p.Audio, nil
}

// CallCount returns the number of recorded Synthesize calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ tts.Provider = (*Provider)(nil)
