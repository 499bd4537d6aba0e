// Package scheduler runs named jobs at fixed intervals. serve uses it to
// import from providers and to optimize the search index in the background.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rubiojr/eventa/pkg/log"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	interval time.Duration
	job      Job
	cancel   context.CancelFunc
	// done is closed when the job's goroutine returns; nil if never started.
	done chan struct{}
}

type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	logger  *log.Logger
}

func New() *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*entry),
		logger: log.ForService("scheduler"),
	}
}

// Add registers job under name. An interval of 0 keeps the job registered
// for RunOnce but never runs it on a timer. Adding to a running scheduler
// starts the job right away; an existing job with the same name is stopped,
// and waited for, before the new one starts.
func (s *Scheduler) Add(name string, interval time.Duration, job Job) error {
	if interval < 0 {
		return fmt.Errorf("job %s: negative interval %v", name, interval)
	}
	if job == nil {
		return fmt.Errorf("job %s: nil job", name)
	}

	for {
		s.mu.Lock()
		if done := s.removeLocked(name); done != nil {
			s.mu.Unlock()
			<-done
			continue
		}
		e := &entry{interval: interval, job: job}
		s.jobs[name] = e
		if s.running {
			s.startLocked(name, e)
		} else if interval == 0 {
			s.logger.Debugf("job %s has interval 0, manual runs only", name)
		}
		s.mu.Unlock()
		return nil
	}
}

// Remove stops and forgets job name, waiting for a run in progress to
// return. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	done := s.removeLocked(name)
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// removeLocked cancels and forgets name. It returns the job's done channel
// when its goroutine may still be running.
func (s *Scheduler) removeLocked(name string) chan struct{} {
	e, ok := s.jobs[name]
	if !ok {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(s.jobs, name)
	s.logger.Debugf("removed job %s", name)
	return e.done
}

// Names lists registered jobs, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs every job with a non-zero interval once, then on its ticker,
// until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for name, e := range s.jobs {
		s.startLocked(name, e)
	}
	s.logger.Infof("scheduler started with %d jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) startLocked(name string, e *entry) {
	if e.interval == 0 {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(ctx, name, e.interval, e.job, e.done)
	s.logger.Infof("scheduled %s every %v", name, e.interval)
}

func (s *Scheduler) run(ctx context.Context, name string, interval time.Duration, job Job, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.execute(ctx, name, job)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("job %s stopped", name)
			return
		case <-ticker.C:
			s.execute(ctx, name, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, name string, job Job) {
	started := time.Now()
	if err := job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf("job %s failed: %v", name, err)
		return
	}
	s.logger.Debugf("job %s finished in %s", name, time.Since(started).Round(time.Millisecond))
}

// RunOnce runs job name synchronously, whatever its interval.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return e.job(ctx)
}

// Stop cancels every job and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	for _, e := range s.jobs {
		e.cancel = nil
		e.done = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Infof("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
