package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the circuit breaker in front of the
// remote backend is open.
var ErrUnavailable = errors.New("remote backend unavailable")

// BreakerConfig tunes the circuit breaker guarding remote calls.
type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 5
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	trip := cfg.ConsecutiveFailures

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
	})
}

// guarded runs fn once through the breaker. Failures are not retried; an
// open breaker fails fast with ErrUnavailable.
func guarded[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return zero, err
	}

	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return v, nil
}
