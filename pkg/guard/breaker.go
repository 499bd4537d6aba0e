package guard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default breaker settings: 3 failures within a minute open the circuit for
// two minutes.
const (
	DefaultFailureThreshold = 3
	DefaultFailureWindow    = 60 * time.Second
	DefaultOpenFor          = 2 * time.Minute
)

type breakerEntry struct {
	failures      int
	lastFailureAt time.Time
	openUntil     time.Time
}

// CircuitBreaker counts recent failures per provider.
type CircuitBreaker struct {
	mu        sync.Mutex
	entries   map[string]*breakerEntry
	threshold int
	window    time.Duration
	openFor   time.Duration
	now       Clock
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithThreshold overrides the failure count, failure window and open duration.
func WithThreshold(failures int, window, openFor time.Duration) BreakerOption {
	return func(b *CircuitBreaker) {
		b.threshold = failures
		b.window = window
		b.openFor = openFor
	}
}

// WithBreakerClock injects the time source.
func WithBreakerClock(c Clock) BreakerOption {
	return func(b *CircuitBreaker) { b.now = c }
}

// NewCircuitBreaker returns a breaker with the default settings.
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		entries:   make(map[string]*breakerEntry),
		threshold: DefaultFailureThreshold,
		window:    DefaultFailureWindow,
		openFor:   DefaultOpenFor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Check reports whether provider may be called. An entry whose last failure
// is older than the failure window, and whose circuit is no longer open, is
// dropped.
func (b *CircuitBreaker) Check(ctx context.Context, provider string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[provider]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	now := b.now()
	if now.Before(e.openUntil) {
		wait := e.openUntil.Sub(now).Round(time.Second)
		return Decision{Reason: fmt.Sprintf("circuit open for %s, retry in %s", provider, wait)}, nil
	}
	if now.Sub(e.lastFailureAt) > b.window {
		delete(b.entries, provider)
	}
	return Decision{Allowed: true}, nil
}

// RecordFailure registers a failed call. Failures older than the window do
// not count towards the threshold.
func (b *CircuitBreaker) RecordFailure(ctx context.Context, provider string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	e, ok := b.entries[provider]
	if !ok || now.Sub(e.lastFailureAt) > b.window {
		e = &breakerEntry{}
		b.entries[provider] = e
	}
	e.failures++
	e.lastFailureAt = now
	if e.failures >= b.threshold {
		e.openUntil = now.Add(b.openFor)
	}
	return nil
}

// RecordSuccess clears provider's entry.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context, provider string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, provider)
	return nil
}
