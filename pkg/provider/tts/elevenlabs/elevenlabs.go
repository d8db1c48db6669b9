// Package elevenlabs provides an ElevenLabs-backed hosted TTS provider using
// the ElevenLabs stream-input WebSocket API. It implements the tts.Provider
// interface by collecting the streamed MP3 chunks into a single clip.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/chronos/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL   = "wss://api.elevenlabs.io"
	wsPathFmt        = "/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "mp3_44100_128"
	maxClipBytes     = 20 << 20
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the websocket base URL (scheme and host).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

// New creates a new ElevenLabs Provider. An empty apiKey is accepted:
// Synthesize then reports tts.ErrNotConfigured.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type audioResponse struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// Synthesize opens a stream-input session, sends the whole utterance, flushes
// and gathers audio until the final marker arrives.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	if p.apiKey == "" {
		return nil, tts.ErrNotConfigured
	}
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice.ID must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, buildURLForVoice(p.baseURL, voice.ID, p.model), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxClipBytes)

	// Begin-of-input authenticates and configures the stream; ElevenLabs
	// requires a non-empty first text value.
	msgs := []textMessage{
		{Text: " ", XiAPIKey: p.apiKey, VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}},
		{Text: text + " "},
		{Text: ""},
	}
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: encode message: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return nil, fmt.Errorf("elevenlabs: send: %w", err)
		}
	}

	var clip []byte
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && len(clip) > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			clip = append(clip, chunk...)
			if len(clip) > maxClipBytes {
				return nil, errors.New("elevenlabs: clip exceeds size limit")
			}
		}
		if resp.IsFinal {
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")

	if len(clip) == 0 {
		return nil, errors.New("elevenlabs: no audio received")
	}
	return &tts.Audio{Data: clip, MIMEType: "audio/mpeg"}, nil
}

func buildURLForVoice(baseURL, voiceID, model string) string {
	return baseURL + fmt.Sprintf(wsPathFmt, voiceID, model, defaultOutputFmt)
}
