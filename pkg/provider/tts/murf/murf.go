// Package murf provides a Murf.ai-backed hosted TTS provider using the
// speech generation REST API. It implements the tts.Provider interface.
package murf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/chronos/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL    = "https://api.murf.ai"
	generateEndpoint  = "/v1/speech/generate"
	defaultFormat     = "MP3"
	defaultSampleRate = 48000
	defaultTimeout    = 30 * time.Second
	maxAudioBytes     = 20 << 20
)

// Option is a functional option for configuring the Murf Provider.
type Option func(*Provider)

// WithBaseURL overrides the Murf API base URL.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for API and audio downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

// WithSampleRate sets the requested output sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// Provider implements tts.Provider backed by Murf.
type Provider struct {
	apiKey     string
	baseURL    string
	sampleRate int
	httpClient *http.Client
}

// New creates a Murf Provider. An empty apiKey is accepted: Synthesize then
// reports tts.ErrNotConfigured so callers fall back to native speech.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type generateRequest struct {
	VoiceID    string `json:"voiceId"`
	Text       string `json:"text"`
	Format     string `json:"format"`
	SampleRate int    `json:"sampleRate"`
}

type generateResponse struct {
	AudioFile    string `json:"audioFile"`
	AudioContent string `json:"audioContent"`
}

// Synthesize renders text with the given voice. The Murf response carries
// either a downloadable file URL or inline base64 content; both are returned
// as raw MP3 bytes.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	if p.apiKey == "" {
		return nil, tts.ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("murf: text must not be empty")
	}
	if voice.ID == "" {
		return nil, errors.New("murf: voice.ID must not be empty")
	}

	body, err := json.Marshal(generateRequest{
		VoiceID:    voice.ID,
		Text:       text,
		Format:     defaultFormat,
		SampleRate: p.sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("murf: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generateEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("murf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("murf: generate HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("murf: generate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("murf: decode response: %w", err)
	}

	switch {
	case gr.AudioFile != "":
		data, err := p.download(ctx, gr.AudioFile)
		if err != nil {
			return nil, err
		}
		return &tts.Audio{Data: data, MIMEType: "audio/mpeg"}, nil
	case gr.AudioContent != "":
		data, err := base64.StdEncoding.DecodeString(gr.AudioContent)
		if err != nil {
			return nil, fmt.Errorf("murf: decode audio content: %w", err)
		}
		return &tts.Audio{Data: data, MIMEType: "audio/mpeg"}, nil
	default:
		return nil, errors.New("murf: no audio in response")
	}
}

func (p *Provider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("murf: build download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("murf: download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("murf: download audio: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("murf: read audio: %w", err)
	}
	return data, nil
}
