// Package guard protects calls to external event providers with a per
// provider rate limiter and circuit breaker.
//
// Both are process-local and best effort. They sit behind the Limiter and
// Breaker interfaces so a shared-store implementation can replace them; the
// interface methods return errors and callers are expected to fail open when
// the bookkeeping itself cannot be evaluated.
//
// The two mechanisms are deliberately independent: a call may pass the rate
// limiter and still be refused by an open circuit, or the reverse.
package guard

import (
	"context"
	"time"
)

// Decision is the outcome of a guard check. Reason is empty when the call
// is permitted.
type Decision struct {
	Allowed bool
	Reason  string
}

// Limiter decides whether a call to provider may proceed.
type Limiter interface {
	Allow(ctx context.Context, provider string) (Decision, error)
}

// Breaker tracks provider failures and refuses calls while a circuit is open.
type Breaker interface {
	Check(ctx context.Context, provider string) (Decision, error)
	RecordFailure(ctx context.Context, provider string) error
	RecordSuccess(ctx context.Context, provider string) error
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time
