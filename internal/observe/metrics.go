// Package observe provides application-wide observability primitives for
// chronos: OpenTelemetry metrics, tracing, trace-aware logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus exporter so they can be scraped via /metrics.
// Tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/chronos"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// LLMDuration tracks completion latency. Attribute "profile".
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks hosted speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TranslateDuration tracks spoken-output translation latency.
	TranslateDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Attributes "provider",
	// "kind" and "status".
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes "provider" and "kind".
	ProviderErrors metric.Int64Counter

	// SpeechFallbacks counts switches to native synthesis. Attribute "reason".
	SpeechFallbacks metric.Int64Counter

	// FigureReplies counts persona replies appended to transcripts.
	// Attribute "figure".
	FigureReplies metric.Int64Counter

	// DebateTurns counts completed user turns. Attribute "outcome".
	DebateTurns metric.Int64Counter

	// QuizCompletions counts finished quizzes. Attribute "score".
	QuizCompletions metric.Int64Counter

	// ActiveSessions tracks the number of live chat sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes
	// "method" and "path".
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// hosted model and speech calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("chronos.llm.duration",
		metric.WithDescription("Latency of LLM completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("chronos.tts.duration",
		metric.WithDescription("Latency of hosted speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("chronos.translate.duration",
		metric.WithDescription("Latency of spoken-output translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("chronos.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("chronos.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SpeechFallbacks, err = m.Int64Counter("chronos.speech.fallbacks",
		metric.WithDescription("Total switches from hosted to native speech by reason."),
	); err != nil {
		return nil, err
	}
	if met.FigureReplies, err = m.Int64Counter("chronos.figure.replies",
		metric.WithDescription("Total persona replies by figure."),
	); err != nil {
		return nil, err
	}
	if met.DebateTurns, err = m.Int64Counter("chronos.debate.turns",
		metric.WithDescription("Total user turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.QuizCompletions, err = m.Int64Counter("chronos.quiz.completions",
		metric.WithDescription("Total finished quizzes by score."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("chronos.active_sessions",
		metric.WithDescription("Number of live chat sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("chronos.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordSpeechFallback records a switch to native speech synthesis.
func (m *Metrics) RecordSpeechFallback(ctx context.Context, reason string) {
	m.SpeechFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordFigureReply records one appended persona reply.
func (m *Metrics) RecordFigureReply(ctx context.Context, figure string) {
	m.FigureReplies.Add(ctx, 1, metric.WithAttributes(attribute.String("figure", figure)))
}

// RecordDebateTurn records the outcome of one user turn.
func (m *Metrics) RecordDebateTurn(ctx context.Context, outcome string) {
	m.DebateTurns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordQuizCompletion records a finished quiz.
func (m *Metrics) RecordQuizCompletion(ctx context.Context, score int) {
	m.QuizCompletions.Add(ctx, 1, metric.WithAttributes(attribute.String("score", strconv.Itoa(score))))
}
