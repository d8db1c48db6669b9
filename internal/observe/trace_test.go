package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTracer installs an in-memory tracer provider for the test.
func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

// captureLogs redirects the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestStartSpan(t *testing.T) {
	exp := useTracer(t)

	ctx, span := StartSpan(context.Background(), "debate.turn")
	cid := CorrelationID(ctx)
	span.End()

	if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation id = %q, want 32 lowercase hex chars", cid)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "debate.turn" {
		t.Fatalf("spans = %v, want one debate.turn span", spans)
	}
	if got := spans[0].SpanContext.TraceID().String(); got != cid {
		t.Errorf("span trace id = %q, correlation id = %q", got, cid)
	}
}

func TestCorrelationID_NoSpan(t *testing.T) {
	t.Parallel()
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestCorrelationID_DistinctPerTrace(t *testing.T) {
	useTracer(t)

	seen := make(map[string]bool)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "figure.reply")
		cid := CorrelationID(ctx)
		span.End()
		if seen[cid] {
			t.Fatalf("duplicate correlation id %s", cid)
		}
		seen[cid] = true
	}
}

func TestLogger(t *testing.T) {
	useTracer(t)

	tests := []struct {
		name      string
		withSpan  bool
		wantTrace bool
	}{
		{"inside span", true, true},
		{"no span", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			ctx := context.Background()
			if tt.withSpan {
				c, s := StartSpan(ctx, "session.say")
				defer s.End()
				ctx = c
			}

			Logger(ctx).Info("figure replied", "figure", "Ada Lovelace")

			out := buf.String()
			if got := strings.Contains(out, "trace_id="); got != tt.wantTrace {
				t.Errorf("trace_id present = %v, want %v in %q", got, tt.wantTrace, out)
			}
			if got := strings.Contains(out, "span_id="); got != tt.wantTrace {
				t.Errorf("span_id present = %v, want %v in %q", got, tt.wantTrace, out)
			}
			if !strings.Contains(out, `figure="Ada Lovelace"`) {
				t.Errorf("log output missing attributes: %q", out)
			}
		})
	}
}
