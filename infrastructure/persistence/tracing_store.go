package persistence

import (
	"context"

	"appconfig/application/ports"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingStore starts a span around every fetch of the wrapped store
type TracingStore struct {
	inner  ports.SectionStore
	tracer trace.Tracer
	table  string
}

var _ ports.SectionStore = (*TracingStore)(nil)

// NewTracingStore wraps inner with spans from tracer. table is recorded as
// the db.name attribute.
func NewTracingStore(inner ports.SectionStore, tracer trace.Tracer, table string) *TracingStore {
	return &TracingStore{inner: inner, tracer: tracer, table: table}
}

// FetchSection implements ports.SectionStore
func (s *TracingStore) FetchSection(ctx context.Context, section, environment string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "appconfig.FetchSection",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "dynamodb"),
			attribute.String("db.name", s.table),
			attribute.String("appconfig.section", section),
			attribute.String("appconfig.environment", environment),
		),
	)
	defer span.End()

	raw, found, err := s.inner.FetchSection(ctx, section, environment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return raw, found, err
	}

	span.SetAttributes(attribute.Bool("appconfig.found", found))
	return raw, found, nil
}
