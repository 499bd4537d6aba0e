package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/external"
	"github.com/rubiojr/eventa/pkg/guard"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/rubiojr/eventa/pkg/storage"
)

var (
	// ErrUnknownProvider is returned for names with no configured instance.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrRateLimited is returned when the rate limiter refuses a call.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrCircuitOpen is returned while a provider's circuit is open.
	ErrCircuitOpen = errors.New("provider circuit open")
)

// Rejected is a record the admission filter refused.
type Rejected struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	Code  string `json:"code"`
	Error string `json:"message"`
}

// Result is the outcome of one provider run.
type Result struct {
	Provider string            `json:"provider"`
	Admitted []*external.Event `json:"admitted"`
	Rejected []Rejected        `json:"rejected"`
}

// Ingestor runs providers behind the rate limiter and circuit breaker.
type Ingestor struct {
	limiter guard.Limiter
	breaker guard.Breaker
	filter  *external.Filter
	logger  *log.Logger

	mu       sync.RWMutex
	registry *Registry
}

// NewIngestor returns an ingestor over registry.
func NewIngestor(registry *Registry, limiter guard.Limiter, breaker guard.Breaker, filter *external.Filter) *Ingestor {
	return &Ingestor{
		registry: registry,
		limiter:  limiter,
		breaker:  breaker,
		filter:   filter,
		logger:   log.ForService("providers"),
	}
}

// SetRegistry swaps the provider instances, e.g. after a config reload.
// Guard state is kept.
func (i *Ingestor) SetRegistry(r *Registry) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.registry = r
}

// Registry returns the current registry.
func (i *Ingestor) Registry() *Registry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.registry
}

// Run fetches from provider name and filters the records. Guard bookkeeping
// errors are logged and the call proceeds.
func (i *Ingestor) Run(ctx context.Context, name string) (*Result, error) {
	p, ok := i.Registry().Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	if d, err := i.limiter.Allow(ctx, name); err != nil {
		i.logger.Warnf("rate limiter unavailable for %s, allowing call: %v", name, err)
	} else if !d.Allowed {
		metrics.GuardDenials.WithLabelValues(name, "rate_limit").Inc()
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, d.Reason)
	}

	if d, err := i.breaker.Check(ctx, name); err != nil {
		i.logger.Warnf("circuit breaker unavailable for %s, allowing call: %v", name, err)
	} else if !d.Allowed {
		metrics.GuardDenials.WithLabelValues(name, "circuit_breaker").Inc()
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, d.Reason)
	}

	started := time.Now()
	records, err := p.Fetch(ctx)
	if err != nil {
		metrics.ProviderFetches.WithLabelValues(name, "failure").Inc()
		if berr := i.breaker.RecordFailure(ctx, name); berr != nil {
			i.logger.Warnf("recording failure for %s: %v", name, berr)
		}
		return nil, fmt.Errorf("fetching from %s: %w", name, err)
	}
	metrics.ProviderFetches.WithLabelValues(name, "success").Inc()
	if berr := i.breaker.RecordSuccess(ctx, name); berr != nil {
		i.logger.Warnf("recording success for %s: %v", name, berr)
	}

	res := &Result{Provider: name, Admitted: []*external.Event{}, Rejected: []Rejected{}}
	for idx, raw := range records {
		ev, err := i.filter.Validate(raw, name)
		if err != nil {
			var rej *external.Rejection
			if !errors.As(err, &rej) {
				return nil, fmt.Errorf("validating record %d from %s: %w", idx, name, err)
			}
			title, _ := raw["title"].(string)
			res.Rejected = append(res.Rejected, Rejected{Index: idx, Title: title, Code: rej.Code, Error: rej.Message})
			metrics.Admissions.WithLabelValues(name, rej.Code).Inc()
			i.logger.Debugf("%s record %d rejected: %v", name, idx, rej)
			continue
		}
		res.Admitted = append(res.Admitted, ev)
		metrics.Admissions.WithLabelValues(name, "admitted").Inc()
	}

	i.logger.Infof("%s: %d records, %d admitted, %d rejected in %s",
		name, len(records), len(res.Admitted), len(res.Rejected), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// EventSink stores imported events.
type EventSink interface {
	HasEvent(ctx context.Context, source, title string, startAt time.Time) (bool, error)
	CreateEvent(ctx context.Context, e *core.Event) (string, error)
}

// ImportStats summarizes an Import call.
type ImportStats struct {
	Created int
	Skipped int
}

// Import stores the admitted events of res as pending submissions, skipping
// ones already imported from the same provider. Times without a zone are
// read in loc.
func Import(ctx context.Context, sink EventSink, res *Result, loc *time.Location) (ImportStats, error) {
	var stats ImportStats
	for _, ev := range res.Admitted {
		e, err := ev.ToEvent(res.Provider, loc)
		if err != nil {
			return stats, fmt.Errorf("converting %q: %w", ev.Title, err)
		}
		exists, err := sink.HasEvent(ctx, e.Source, e.Title, e.StartAt)
		if err != nil {
			return stats, err
		}
		if exists {
			stats.Skipped++
			continue
		}
		_, err = sink.CreateEvent(ctx, e)
		if errors.Is(err, storage.ErrDuplicate) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("storing %q: %w", ev.Title, err)
		}
		metrics.Submissions.Inc()
		stats.Created++
	}
	return stats, nil
}
