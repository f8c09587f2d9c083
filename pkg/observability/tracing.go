package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation name used for appconfig spans
const TracerName = "appconfig"

// TracerProvider wraps the OpenTelemetry tracer provider
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing creates a tracer provider exporting over OTLP/gRPC to endpoint.
// The provider is not installed globally; callers pass Tracer() where needed.
func InitTracing(ctx context.Context, serviceName, environment, endpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(TracerName),
	}, nil
}

// Tracer returns the tracer for appconfig spans
func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil {
		return NoopTracer()
	}
	return tp.tracer
}

// Shutdown flushes pending spans and stops the exporter
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// NoopTracer returns a tracer that records nothing
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(TracerName)
}
