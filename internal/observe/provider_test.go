package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProvider_RejectsSampleRatio(t *testing.T) {
	t.Parallel()

	for _, r := range []float64{-0.1, 1.5} {
		if _, err := InitProvider(context.Background(), ProviderConfig{SampleRatio: r}); err == nil {
			t.Errorf("ratio %v: expected error", r)
		}
	}
}

func TestInitProvider_InstallsGlobals(t *testing.T) {
	origTP, origMP, origProp := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
		otel.SetTextMapPropagator(origProp)
	})

	exp := tracetest.NewInMemoryExporter()
	shutdown, err := InitProvider(context.Background(), ProviderConfig{ServiceVersion: "test", SpanExporter: exp})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "quiz.generate")
	span.End()

	fields := otel.GetTextMapPropagator().Fields()
	if len(fields) == 0 || fields[0] != "traceparent" {
		t.Errorf("propagator fields = %v, want traceparent first", fields)
	}

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		t.Fatalf("tracer provider = %T", otel.GetTracerProvider())
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	if got := len(exp.GetSpans()); got != 1 {
		t.Errorf("exported spans = %d, want 1", got)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
