// Package circuitbreaker guards upstream provider calls with
// github.com/sony/gobreaker so a failing API is not hammered every request.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Execute while the circuit is open.
var ErrOpen = gobreaker.ErrOpenState

// Abandoned marks err as caused by the caller giving up rather than by the
// guarded dependency. Abandoned errors are returned from Execute but do not
// count against the circuit.
func Abandoned(err error) error {
	if err == nil {
		return nil
	}
	return &abandonedError{err: err}
}

type abandonedError struct{ err error }

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// countsAsSuccess reports whether err leaves the failure counts alone.
func countsAsSuccess(err error) bool {
	var abandoned *abandonedError
	return err == nil || errors.As(err, &abandoned) || errors.Is(err, context.Canceled)
}

// Config holds the configuration for a circuit breaker.
type Config struct {
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts
	// are cleared.
	Interval time.Duration

	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the circuit once reached, e.g. 0.6 for 60%.
	FailureRatio float64

	// MinRequests is the sample size required before the ratio is checked.
	MinRequests uint32
}

// UpstreamConfig returns the settings used for dashboard providers.
func UpstreamConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a circuit breaker. State changes are logged at warn level.
func New(cfg Config, logger *slog.Logger) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: countsAsSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. While open it returns ErrOpen
// without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return cb.breaker.Execute(fn)
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker currently rejects calls.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
