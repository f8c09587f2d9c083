// Package persistence holds decorators around ports.SectionStore that add
// metrics, tracing and failure isolation without changing the interface.
package persistence

import (
	"context"
	"time"

	"appconfig/application/ports"
	"appconfig/pkg/observability"
)

// MetricsStore records fetch counts and latency for the wrapped store
type MetricsStore struct {
	inner     ports.SectionStore
	collector *observability.Collector
}

var _ ports.SectionStore = (*MetricsStore)(nil)

// NewMetricsStore wraps inner with metrics recorded on collector
func NewMetricsStore(inner ports.SectionStore, collector *observability.Collector) *MetricsStore {
	return &MetricsStore{inner: inner, collector: collector}
}

// FetchSection implements ports.SectionStore
func (s *MetricsStore) FetchSection(ctx context.Context, section, environment string) (string, bool, error) {
	start := time.Now()
	raw, found, err := s.inner.FetchSection(ctx, section, environment)
	s.collector.StoreFetchDuration.WithLabelValues(environment).Observe(time.Since(start).Seconds())

	outcome := observability.OutcomeFound
	switch {
	case err != nil:
		outcome = observability.OutcomeError
	case !found:
		outcome = observability.OutcomeMissing
	}
	s.collector.StoreFetches.WithLabelValues(environment, outcome).Inc()

	return raw, found, err
}
