// Package resolver lazily resolves configuration sections by merging the
// default environment's record with the target environment's record.
//
// A resolved section is cached for the lifetime of the Resolver and never
// fetched again. Contains, Sections and Len only describe what has been
// resolved so far; they never consult the store.
package resolver

import (
	"context"
	"maps"
	"slices"
	"sync"

	"appconfig/application/ports"
	"appconfig/domain/config"
	apperrors "appconfig/pkg/errors"
	"appconfig/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Resolver resolves and caches merged configuration sections
type Resolver struct {
	store       ports.SectionStore
	environment string
	logger      *zap.Logger
	collector   *observability.Collector

	mu       sync.RWMutex
	sections map[string]*config.Section
	inflight singleflight.Group
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCollector records cache hits, misses and resolve errors on c
func WithCollector(c *observability.Collector) Option {
	return func(r *Resolver) {
		r.collector = c
	}
}

// New creates a resolver reading sections for environment from store.
func New(store ports.SectionStore, environment string, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, apperrors.NewValidationError("section store is required")
	}
	if environment == "" {
		return nil, apperrors.NewValidationError("environment is required")
	}

	r := &Resolver{
		store:       store,
		environment: environment,
		logger:      zap.NewNop(),
		sections:    make(map[string]*config.Section),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Environment returns the environment whose values override the defaults
func (r *Resolver) Environment() string {
	return r.environment
}

// Get returns the merged section, resolving it from the store on first use.
// A failed resolution caches nothing, so a later call tries again.
func (r *Resolver) Get(ctx context.Context, name string) (*config.Section, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("section name is required")
	}

	if section, ok := r.cached(name); ok {
		r.recordHit()
		return section, nil
	}
	r.recordMiss()

	// Concurrent callers for the same section share one resolution. It runs
	// detached from any single caller's cancellation; each caller stops
	// waiting when its own context is done.
	ch := r.inflight.DoChan(name, func() (interface{}, error) {
		if section, ok := r.cached(name); ok {
			return section, nil
		}

		section, err := r.resolve(context.WithoutCancel(ctx), name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.sections[name] = section
		r.mu.Unlock()

		r.logger.Debug("Resolved config section",
			zap.String("section", name),
			zap.String("environment", r.environment),
			zap.Int("keys", section.Len()),
		)
		return section, nil
	})

	var (
		v   interface{}
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = apperrors.NewBackendError("resolve section", ctx.Err()).
			WithDetail("section", name).
			WithDetail("environment", r.environment)
	}
	if err != nil {
		r.recordError(err)
		r.logger.Warn("Failed to resolve config section",
			zap.String("section", name),
			zap.String("environment", r.environment),
			zap.Error(err),
		)
		return nil, err
	}

	return v.(*config.Section), nil
}

// Lookup returns a single value: resolver[section][key].
func (r *Resolver) Lookup(ctx context.Context, section, key string) (any, error) {
	s, err := r.Get(ctx, section)
	if err != nil {
		return nil, err
	}
	return s.Get(key)
}

// Contains reports whether section has already been resolved.
func (r *Resolver) Contains(section string) bool {
	_, ok := r.cached(section)
	return ok
}

// Sections returns the sorted names of resolved sections
func (r *Resolver) Sections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sections))
}

// Len returns the number of resolved sections
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sections)
}

func (r *Resolver) cached(name string) (*config.Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	section, ok := r.sections[name]
	return section, ok
}

func (r *Resolver) resolve(ctx context.Context, name string) (*config.Section, error) {
	if r.environment == config.DefaultEnvironment {
		return r.load(ctx, name, config.DefaultEnvironment)
	}

	var defaults, overrides *config.Section
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defaults, err = r.load(gctx, name, config.DefaultEnvironment)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = r.load(gctx, name, r.environment)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return config.Merge(defaults, overrides), nil
}

func (r *Resolver) load(ctx context.Context, name, environment string) (*config.Section, error) {
	raw, found, err := r.store.FetchSection(ctx, name, environment)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewBackendError("FetchSection", err).
			WithDetail("section", name).
			WithDetail("environment", environment)
	}

	if !found {
		r.logger.Debug("No stored config record",
			zap.String("section", name),
			zap.String("environment", environment),
		)
		return config.EmptySection(name), nil
	}

	return config.ParseSection(name, environment, raw)
}

func (r *Resolver) recordHit() {
	if r.collector != nil {
		r.collector.CacheHits.Inc()
	}
}

func (r *Resolver) recordMiss() {
	if r.collector != nil {
		r.collector.CacheMisses.Inc()
	}
}

func (r *Resolver) recordError(err error) {
	if r.collector == nil {
		return
	}
	errType := "UNKNOWN"
	if appErr := apperrors.GetAppError(err); appErr != nil {
		errType = string(appErr.Type)
	}
	r.collector.ResolveErrors.WithLabelValues(errType).Inc()
}
