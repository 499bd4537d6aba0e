package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/rubiojr/eventa/pkg/config"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/rubiojr/eventa/pkg/scheduler"
	"github.com/rubiojr/eventa/pkg/storage"
)

const (
	importJobPrefix = "import:"
	optimizeJob     = "optimize"
)

// importJob fetches from provider name and queues what the filter admits.
func importJob(ingestor *providers.Ingestor, sink providers.EventSink, name string, loc *time.Location) scheduler.Job {
	logger := log.ForService("import")
	return func(ctx context.Context) error {
		res, err := ingestor.Run(ctx, name)
		if err != nil {
			return err
		}
		stats, err := providers.Import(ctx, sink, res, loc)
		if err != nil {
			return err
		}
		logger.Infof("%s: %d queued, %d already known, %d rejected", name, stats.Created, stats.Skipped, len(res.Rejected))
		return nil
	}
}

// scheduleImports replaces the import jobs with one per provider that has
// an interval.
func scheduleImports(sched *scheduler.Scheduler, cfg *config.Config, ingestor *providers.Ingestor, store *storage.Store) error {
	for _, name := range sched.Names() {
		if strings.HasPrefix(name, importJobPrefix) {
			sched.Remove(name)
		}
	}
	loc := cfg.Location()
	for _, name := range cfg.ProviderNames() {
		interval := cfg.Providers[name].Interval.Duration
		if interval == 0 {
			continue
		}
		if err := sched.Add(importJobPrefix+name, interval, importJob(ingestor, store, name, loc)); err != nil {
			return err
		}
	}
	return nil
}

func scheduleOptimize(sched *scheduler.Scheduler, cfg *config.Config, store *storage.Store) error {
	if cfg.OptimizeEvery.Duration == 0 {
		sched.Remove(optimizeJob)
		return nil
	}
	return sched.Add(optimizeJob, cfg.OptimizeEvery.Duration, store.Optimize)
}
