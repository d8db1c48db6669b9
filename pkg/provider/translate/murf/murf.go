// Package murf provides a Murf.ai-backed translation provider. It implements
// the translate.Provider interface.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/chronos/pkg/provider/translate"
)

var _ translate.Provider = (*Provider)(nil)

const (
	defaultBaseURL    = "https://api.murf.ai"
	translateEndpoint = "/v1/text/translate"
	defaultTimeout    = 20 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBaseURL overrides the Murf API base URL.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

// Provider implements translate.Provider backed by Murf.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Provider. An empty apiKey is accepted: Translate then reports
// translate.ErrNotConfigured.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type translateRequest struct {
	TargetLanguage string   `json:"targetLanguage"`
	Texts          []string `json:"texts"`
}

// Translate sends texts to Murf and normalises the response shape.
func (p *Provider) Translate(ctx context.Context, targetLanguage string, texts []string) ([]string, error) {
	if p.apiKey == "" {
		return nil, translate.ErrNotConfigured
	}
	if targetLanguage == "" || len(texts) == 0 {
		return nil, errors.New("murf: missing targetLanguage or texts")
	}

	body, err := json.Marshal(translateRequest{TargetLanguage: targetLanguage, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("murf: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+translateEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("murf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("murf: translate HTTP: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("murf: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("murf: translate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return Normalize(data, len(texts))
}

// Normalize extracts translations from the response shapes Murf is known to
// return: "translations" holding strings or objects with a "text" or
// "translatedText" field, or a flat "translatedTexts" string list. The
// result always has n entries; missing ones are empty.
func Normalize(data []byte, n int) ([]string, error) {
	var raw struct {
		Translations    []json.RawMessage `json:"translations"`
		TranslatedTexts []string          `json:"translatedTexts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("murf: decode response: %w", err)
	}

	out := make([]string, n)
	switch {
	case raw.Translations != nil:
		for i := 0; i < n && i < len(raw.Translations); i++ {
			out[i] = entryText(raw.Translations[i])
		}
	case raw.TranslatedTexts != nil:
		copy(out, raw.TranslatedTexts)
	default:
		return nil, errors.New("murf: no translations in response")
	}
	return out, nil
}

func entryText(entry json.RawMessage) string {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return s
	}
	var obj struct {
		Text           string `json:"text"`
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(entry, &obj); err != nil {
		return ""
	}
	if obj.Text != "" {
		return obj.Text
	}
	return obj.TranslatedText
}
