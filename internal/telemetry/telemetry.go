// Package telemetry wires an optional OTLP trace exporter. Tracing is off
// unless the standard OTEL endpoint variable is set, so the CLI carries no
// collector dependency by default.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const endpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Setup installs a global tracer provider when an OTLP endpoint is
// configured. The returned shutdown flushes pending spans; it is safe to
// call even when tracing is disabled.
func Setup(ctx context.Context, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if os.Getenv(endpointEnv) == "" {
		return nil, noop, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Tracer(serviceName), provider.Shutdown, nil
}
