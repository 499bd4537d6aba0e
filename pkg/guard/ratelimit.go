package guard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default rate limit: 3 calls per provider every 10 seconds.
const (
	DefaultMaxCalls = 3
	DefaultWindow   = 10 * time.Second
)

type rateEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by provider name. A window
// starts on the first call and is reset lazily by the first call after it
// expires.
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*rateEntry
	maxCalls int
	window   time.Duration
	now      Clock
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimit overrides the number of calls allowed per window.
func WithLimit(maxCalls int, window time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		r.maxCalls = maxCalls
		r.window = window
	}
}

// WithRateClock injects the time source.
func WithRateClock(c Clock) RateLimiterOption {
	return func(r *RateLimiter) { r.now = c }
}

// NewRateLimiter returns a limiter with the default limits.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		entries:  make(map[string]*rateEntry),
		maxCalls: DefaultMaxCalls,
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow counts a call against provider's window.
func (r *RateLimiter) Allow(ctx context.Context, provider string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.entries[provider]
	if !ok || !now.Before(e.resetAt) {
		r.entries[provider] = &rateEntry{count: 1, resetAt: now.Add(r.window)}
		return Decision{Allowed: true}, nil
	}

	if e.count >= r.maxCalls {
		wait := e.resetAt.Sub(now).Round(time.Second)
		return Decision{Reason: fmt.Sprintf("rate limit exceeded for %s, retry in %s", provider, wait)}, nil
	}
	e.count++
	return Decision{Allowed: true}, nil
}
