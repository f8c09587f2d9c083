package persistence

import (
	"context"
	"errors"
	"time"

	"appconfig/application/ports"
	apperrors "appconfig/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name         string
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // closed-state window before counts reset
	Timeout      time.Duration // open-state duration before half-open
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for the breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// CircuitBreakerStore stops calling the wrapped store once its failure ratio
// trips the breaker. It never retries; rejected calls fail immediately.
type CircuitBreakerStore struct {
	inner  ports.SectionStore
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ ports.SectionStore = (*CircuitBreakerStore)(nil)

type fetchResult struct {
	raw   string
	found bool
}

// NewCircuitBreakerStore wraps inner with a circuit breaker
func NewCircuitBreakerStore(inner ports.SectionStore, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// malformed records are the caller's data, not a store failure
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.IsParseError(err)
		},
	})

	return &CircuitBreakerStore{inner: inner, cb: cb, logger: logger}
}

// State returns the current breaker state
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// FetchSection implements ports.SectionStore
func (s *CircuitBreakerStore) FetchSection(ctx context.Context, section, environment string) (string, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		raw, found, err := s.inner.FetchSection(ctx, section, environment)
		if err != nil {
			return nil, err
		}
		return fetchResult{raw: raw, found: found}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", false, apperrors.NewBackendError("FetchSection", err).
				WithCode("CIRCUIT_OPEN").
				WithDetail("section", section).
				WithDetail("environment", environment)
		}
		return "", false, err
	}

	r := res.(fetchResult)
	return r.raw, r.found, nil
}
