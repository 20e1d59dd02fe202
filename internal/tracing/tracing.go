// Package tracing wires go.opentelemetry.io/otel the way the teacher's
// agentctl tracer sets up its provider. The service methods open no spans;
// Setup installs the provider and StartSpan is available to callers. When no
// collector endpoint is
// configured the SDK still runs, just with no exporter registered downstream
// of the default no-op processor, so the binary works standalone.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/RSuyash/repomesh"

// Shutdown flushes and stops the tracer provider; call before process exit.
type Shutdown func(context.Context) error

// Setup installs a TracerProvider, exporting to endpoint over OTLP/HTTP when
// non-empty, otherwise with no exporter (spans are created and dropped).
func Setup(ctx context.Context, serviceName, endpoint string) (Shutdown, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the package-wide tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan is a small convenience wrapper that opens one span on the
// package-wide tracer. No code in this module calls it.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
