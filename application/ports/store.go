package ports

import (
	"context"
)

// SectionStore defines the read-only interface for stored config sections.
// This is a port in hexagonal architecture - the resolver doesn't know about the implementation
type SectionStore interface {
	// FetchSection returns the raw JSON blob stored for (section, environment).
	// found is false with a nil error when no record exists.
	FetchSection(ctx context.Context, section, environment string) (raw string, found bool, err error)
}

// SectionStoreFunc adapts a function to SectionStore
type SectionStoreFunc func(ctx context.Context, section, environment string) (string, bool, error)

// FetchSection calls f
func (f SectionStoreFunc) FetchSection(ctx context.Context, section, environment string) (string, bool, error) {
	return f(ctx, section, environment)
}
