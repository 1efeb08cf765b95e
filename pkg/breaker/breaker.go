// Package breaker guards calls to external dependencies (the vector
// store, the LLM provider) with a per-dependency circuit breaker, so a
// struggling dependency fails fast instead of piling up blocked workers.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/config"
)

// ErrOpen is returned when a call is rejected because the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

// Breaker wraps one gobreaker instance for a single named dependency. The
// underlying gobreaker instance is swappable under mu so Reset can hand
// back a clean one without disturbing callers mid-Execute.
type Breaker[T any] struct {
	name string
	cfg  *config.BreakerConfig

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker[T]

	lastFailureMu sync.RWMutex
	lastFailure   time.Time
}

func newCircuitBreaker[T any](name string, cfg *config.BreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		MaxRequests: cfg.HalfOpenMaxRequests,
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}

// New builds a Breaker named name from cfg, failing after cfg.FailureThreshold
// consecutive failures and allowing a half-open trial after cfg.OpenTimeout.
func New[T any](name string, cfg *config.BreakerConfig) *Breaker[T] {
	return &Breaker[T]{name: name, cfg: cfg, cb: newCircuitBreaker[T](name, cfg)}
}

// Execute runs fn through the breaker. If the breaker is open, fn is not
// called and an apperr.CategoryDependencyUnavailable error is returned.
func (b *Breaker[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	result, err := cb.Execute(func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return result, apperr.New(apperr.CategoryDependencyUnavailable,
				fmt.Errorf("%s: %w", b.name, ErrOpen))
		}
		b.lastFailureMu.Lock()
		b.lastFailure = time.Now()
		b.lastFailureMu.Unlock()
		return result, err
	}
	return result, nil
}

// State returns the breaker's current state for health reporting.
func (b *Breaker[T]) State() gobreaker.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb.State()
}

// Name returns the guarded dependency's name.
func (b *Breaker[T]) Name() string {
	return b.name
}

// Reset forces the breaker back to a fresh closed state, discarding
// accumulated counts. For an operator endpoint to clear a breaker an
// operator has judged healthy again, not for use on the request path.
func (b *Breaker[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = newCircuitBreaker[T](b.name, b.cfg)

	b.lastFailureMu.Lock()
	b.lastFailure = time.Time{}
	b.lastFailureMu.Unlock()
}

// Snapshot is a point-in-time view of a breaker's configuration and
// accumulated counts, for operator inspection.
type Snapshot struct {
	Name             string
	State            string
	Counts           gobreaker.Counts
	FailureThreshold uint32
	OpenTimeout      time.Duration
	LastFailure      time.Time
}

// Snapshot reports the breaker's current state, counts, configured
// thresholds, and the time of its most recent recorded failure (the zero
// value if none has occurred since construction or the last Reset).
func (b *Breaker[T]) Snapshot() Snapshot {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	b.lastFailureMu.RLock()
	lastFailure := b.lastFailure
	b.lastFailureMu.RUnlock()

	return Snapshot{
		Name:             b.name,
		State:            cb.State().String(),
		Counts:           cb.Counts(),
		FailureThreshold: b.cfg.FailureThreshold,
		OpenTimeout:      b.cfg.OpenTimeout,
		LastFailure:      lastFailure,
	}
}
