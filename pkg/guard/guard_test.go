package guard

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)}
}

func mustAllow(t *testing.T, l Limiter, provider string) Decision {
	t.Helper()
	d, err := l.Allow(context.Background(), provider)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	return d
}

func mustCheck(t *testing.T, b Breaker, provider string) Decision {
	t.Helper()
	d, err := b.Check(context.Background(), provider)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return d
}

func TestRateLimiterFourthCallDenied(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(WithRateClock(clock.now))

	for i := 0; i < 3; i++ {
		if d := mustAllow(t, rl, "x"); !d.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		clock.advance(time.Second)
	}

	d := mustAllow(t, rl, "x")
	if d.Allowed {
		t.Fatal("4th call within the window should be denied")
	}
	if d.Reason == "" {
		t.Error("denial should carry a reason")
	}

	clock.advance(DefaultWindow)
	if d := mustAllow(t, rl, "x"); !d.Allowed {
		t.Fatal("first call after the window should be allowed")
	}
}

func TestRateLimiterProvidersIndependent(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(WithRateClock(clock.now))

	for i := 0; i < 3; i++ {
		mustAllow(t, rl, "a")
	}
	if d := mustAllow(t, rl, "a"); d.Allowed {
		t.Fatal("provider a should be limited")
	}
	if d := mustAllow(t, rl, "b"); !d.Allowed {
		t.Fatal("provider b has its own window")
	}
}

func TestRateLimiterCustomLimit(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(WithRateClock(clock.now), WithLimit(1, time.Minute))

	mustAllow(t, rl, "x")
	if d := mustAllow(t, rl, "x"); d.Allowed {
		t.Fatal("second call should be denied with a limit of 1")
	}
	clock.advance(time.Minute)
	if d := mustAllow(t, rl, "x"); !d.Allowed {
		t.Fatal("window boundary should reset the count")
	}
}

func TestRateLimiterCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRateLimiter().Allow(ctx, "x"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCircuitBreakerOpensAndSuccessCloses(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	cb := NewCircuitBreaker(WithBreakerClock(clock.now))

	for i := 0; i < 3; i++ {
		if d := mustCheck(t, cb, "x"); !d.Allowed {
			t.Fatalf("circuit should be closed before failure %d", i+1)
		}
		if err := cb.RecordFailure(ctx, "x"); err != nil {
			t.Fatal(err)
		}
		clock.advance(5 * time.Second)
	}

	d := mustCheck(t, cb, "x")
	if d.Allowed {
		t.Fatal("circuit should be open after 3 failures")
	}
	if d.Reason == "" {
		t.Error("open circuit should carry a reason")
	}

	if err := cb.RecordSuccess(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if d := mustCheck(t, cb, "x"); !d.Allowed {
		t.Fatal("success should close the circuit")
	}
}

func TestCircuitBreakerReopensAfterCooldown(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	cb := NewCircuitBreaker(WithBreakerClock(clock.now))

	for i := 0; i < 3; i++ {
		_ = cb.RecordFailure(ctx, "x")
	}
	clock.advance(DefaultOpenFor - time.Second)
	if d := mustCheck(t, cb, "x"); d.Allowed {
		t.Fatal("circuit should still be open")
	}
	clock.advance(2 * time.Second)
	if d := mustCheck(t, cb, "x"); !d.Allowed {
		t.Fatal("circuit should close after the open period")
	}
	if _, ok := cb.entries["x"]; ok {
		t.Error("stale entry should be dropped once the window has passed")
	}
}

func TestCircuitBreakerSlowFailuresDoNotOpen(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	cb := NewCircuitBreaker(WithBreakerClock(clock.now))

	for i := 0; i < 5; i++ {
		_ = cb.RecordFailure(ctx, "x")
		clock.advance(DefaultFailureWindow + time.Second)
	}
	if d := mustCheck(t, cb, "x"); !d.Allowed {
		t.Fatal("failures spread beyond the window should not open the circuit")
	}
}

func TestCircuitBreakerEntryDroppedAfterQuietWindow(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	cb := NewCircuitBreaker(WithBreakerClock(clock.now))

	_ = cb.RecordFailure(ctx, "x")
	_ = cb.RecordFailure(ctx, "x")
	clock.advance(DefaultFailureWindow + time.Second)
	mustCheck(t, cb, "x")
	if _, ok := cb.entries["x"]; ok {
		t.Fatal("entry should be dropped after a quiet window")
	}

	// Counting starts over.
	_ = cb.RecordFailure(ctx, "x")
	if d := mustCheck(t, cb, "x"); !d.Allowed {
		t.Fatal("single fresh failure must not open the circuit")
	}
}

func TestGuardsAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	rl := NewRateLimiter(WithRateClock(clock.now))
	cb := NewCircuitBreaker(WithBreakerClock(clock.now))

	for i := 0; i < 3; i++ {
		_ = cb.RecordFailure(ctx, "x")
	}
	if d := mustAllow(t, rl, "x"); !d.Allowed {
		t.Fatal("open circuit must not consume or deny rate limit slots")
	}
	if d := mustCheck(t, cb, "x"); d.Allowed {
		t.Fatal("breaker should still be open")
	}
}
