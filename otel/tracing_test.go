package otel_test

import (
	"context"
	"testing"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	grooveotel "github.com/petal-labs/groovesync/otel"
)

func TestSetupTracingDisabled(t *testing.T) {
	before := otelapi.GetTracerProvider()

	shutdown, err := grooveotel.SetupTracing(context.Background(), grooveotel.TracingConfig{ServiceName: "groovesync"})
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if otelapi.GetTracerProvider() != before {
		t.Fatal("disabled tracing replaced the global tracer provider")
	}
}

func TestSetupTracingEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:4318")
	t.Cleanup(func() { otelapi.SetTracerProvider(noop.NewTracerProvider()) })

	shutdown, err := grooveotel.SetupTracing(context.Background(), grooveotel.TracingConfig{
		Enabled:        true,
		ServiceName:    "groovesync",
		ServiceVersion: "test",
	})
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}
	if _, ok := otelapi.GetTracerProvider().(noop.TracerProvider); ok {
		t.Fatal("enabled tracing did not install a tracer provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
