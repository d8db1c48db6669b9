// Package completion is the single gateway between chronos and the hosted
// language model.
//
// [Client.Complete] issues exactly one request per call. There is no retry
// and no backoff: a failed call is returned to the caller, which substitutes
// its own in-character or static fallback. Structured helpers ([Client.DetectGender],
// [Client.DetectLanguage], [Client.Summarise], ...) parse the model's JSON
// with [DecodeJSON] and default on failure.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/provider/llm"
	"github.com/MrWong99/chronos/pkg/types"
)

// ErrNotConfigured is returned when no language model is configured.
var ErrNotConfigured = errors.New("completion: language model not configured")

// Profile holds the sampling settings of one use case.
type Profile struct {
	Name        string
	Temperature float64
	MaxTokens   int
}

// Sampling profiles per use case.
var (
	Conversation      = Profile{Name: "conversation", Temperature: 0.7, MaxTokens: 256}
	GenderDetection   = Profile{Name: "gender", Temperature: 0.1, MaxTokens: 20}
	LanguageDetection = Profile{Name: "language", Temperature: 0.2, MaxTokens: 60}
	Translation       = Profile{Name: "translation", Temperature: 0.1, MaxTokens: 256}
	Reflection        = Profile{Name: "reflection", Temperature: 0.7, MaxTokens: 300}
	Summarisation     = Profile{Name: "summary", Temperature: 0.3, MaxTokens: 400}
	QuizGeneration    = Profile{Name: "quiz", Temperature: 0.2, MaxTokens: 1500}
)

// Option configures a [Client].
type Option func(*Client)

// WithMetrics records latency and outcome on m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithProviderName sets the provider label used in metrics and logs.
func WithProviderName(name string) Option {
	return func(c *Client) { c.name = name }
}

// Client wraps one [llm.Provider]. A nil provider is allowed; every call then
// fails with [ErrNotConfigured]. Safe for concurrent use.
type Client struct {
	provider llm.Provider
	name     string
	metrics  *observe.Metrics
}

// New returns a [Client] for p.
func New(p llm.Provider, opts ...Option) *Client {
	c := &Client{provider: p, name: "llm"}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Configured reports whether a provider is present.
func (c *Client) Configured() bool {
	return c.provider != nil
}

// Complete sends system and msgs with profile p and returns the reply text.
// MaxTokens is clamped to the model's advertised output limit.
func (c *Client) Complete(ctx context.Context, system string, msgs []types.Message, p Profile) (string, error) {
	if c.provider == nil {
		return "", ErrNotConfigured
	}

	maxTokens := p.MaxTokens
	if limit := c.provider.Capabilities().MaxOutputTokens; limit > 0 && maxTokens > limit {
		maxTokens = limit
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     msgs,
		Temperature:  p.Temperature,
		MaxTokens:    maxTokens,
	})
	c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("profile", p.Name)))

	if err != nil {
		c.metrics.RecordProviderRequest(ctx, c.name, "llm", "error")
		c.metrics.RecordProviderError(ctx, c.name, "llm")
		observe.Logger(ctx).Warn("completion failed", "profile", p.Name, "provider", c.name, "err", err)
		return "", fmt.Errorf("completion: %s: %w", p.Name, err)
	}
	c.metrics.RecordProviderRequest(ctx, c.name, "llm", "ok")
	return resp.Content, nil
}

// Respond produces figure's next reply given the conversation history.
func (c *Client) Respond(ctx context.Context, req persona.Request, history []types.Message) (string, error) {
	return c.Complete(ctx, persona.BuildSystemPrompt(req), history, Conversation)
}

// ask sends a single user message with no system prompt.
func (c *Client) ask(ctx context.Context, prompt string, p Profile) (string, error) {
	return c.Complete(ctx, "", []types.Message{{Role: types.RoleUser, Content: prompt}}, p)
}

// Transcript renders msgs as "role: content" lines, the form every
// structured prompt quotes the conversation in.
func Transcript(msgs []types.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
