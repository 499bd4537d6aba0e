package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/eventa/pkg/api"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/rubiojr/eventa/pkg/realtime"
	"github.com/rubiojr/eventa/pkg/scheduler"
	"github.com/rubiojr/eventa/pkg/search"
	"github.com/rubiojr/eventa/pkg/storage"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the configuration)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"), c.Bool("debug"))
		},
	}
}

// serve runs the API until SIGINT or SIGTERM. SIGHUP and changes to the
// config file reload web search settings and providers.
func serve(ctx context.Context, configPath, listen string, debug bool) error {
	logger := log.ForService("serve")

	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("failed to close event store: %v", err)
		}
	}()

	searchService, err := newSearchService(cfg, store)
	if err != nil {
		return err
	}
	ingestor, err := newIngestor(cfg)
	if err != nil {
		return err
	}

	sched := scheduler.New()
	if err := scheduleImports(sched, cfg, ingestor, store); err != nil {
		return err
	}
	if err := scheduleOptimize(sched, cfg, store); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	srv := api.NewServer(store, searchService,
		api.WithIngestor(ingestor),
		api.WithHub(realtime.NewHub(0)),
		api.WithAdminToken(cfg.Admin.Token),
	)
	if cfg.Admin.Token == "" {
		logger.Warnf("admin token not set, moderation routes are disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var watchEvents <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
	}

	reload := func(reason string) {
		logger.Infof("%s, reloading configuration", reason)
		if err := reloadConfiguration(configPath, debug, searchService, ingestor, sched, store); err != nil {
			logger.Errorf("failed to reload configuration: %v", err)
			return
		}
		logger.Infof("configuration reloaded")
	}

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
			return shutdown(httpServer)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reload("received SIGHUP")
				continue
			}
			fmt.Println("\nShutting down...")
			return shutdown(httpServer)
		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			// Editors often replace the file instead of writing it.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(fmt.Sprintf("config file changed (%s)", event.Op))
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// reloadConfiguration swaps the web search settings, the provider registry
// and the scheduled jobs. The listen address, database and admin token need
// a restart.
func reloadConfiguration(configPath string, debug bool, searchService *search.Service, ingestor *providers.Ingestor, sched *scheduler.Scheduler, store *storage.Store) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}

	registry, err := createProvidersFromConfig(cfg)
	if err != nil {
		return err
	}

	web := newWebSearcher(cfg)
	searchService.SetWeb(web, cfg.Web.MinResults)
	ingestor.SetRegistry(registry)
	if err := scheduleImports(sched, cfg, ingestor, store); err != nil {
		return err
	}
	if err := scheduleOptimize(sched, cfg, store); err != nil {
		return err
	}
	log.ForService("serve").Infof("%d providers configured, web search enabled: %t",
		len(registry.Names()), web != nil)
	return nil
}
