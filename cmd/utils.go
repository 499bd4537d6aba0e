package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rubiojr/eventa/pkg/config"
	"github.com/rubiojr/eventa/pkg/external"
	"github.com/rubiojr/eventa/pkg/guard"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/providers"
	"github.com/rubiojr/eventa/pkg/query"
	"github.com/rubiojr/eventa/pkg/search"
	"github.com/rubiojr/eventa/pkg/storage"
	"github.com/rubiojr/eventa/pkg/websearch"
)

// loadConfig loads the configuration and applies its log settings. The
// --debug flag wins over the configured level.
func loadConfig(configPath string, debug bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := log.Configure(cfg.Log.Level, cfg.Log.DebugServices); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	if debug {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}
	return store, nil
}

func newNormalizer(cfg *config.Config) (*query.Normalizer, error) {
	if cfg.DictionaryPath == "" {
		return query.Default(), nil
	}
	d, err := query.LoadDictionary(cfg.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}
	return query.NewNormalizer(d)
}

func newFilter(cfg *config.Config) (*external.Filter, error) {
	if cfg.BlocklistPath == "" {
		return external.NewDefaultFilter()
	}
	b, err := external.LoadBlocklist(cfg.BlocklistPath)
	if err != nil {
		return nil, fmt.Errorf("loading blocklist: %w", err)
	}
	return external.NewFilter(b), nil
}

// newWebSearcher returns nil when web search is not configured.
func newWebSearcher(cfg *config.Config) search.WebSearcher {
	wc := websearch.Config{
		APIKey:   cfg.Web.APIKey,
		EngineID: cfg.Web.EngineID,
		Endpoint: cfg.Web.Endpoint,
		Timeout:  cfg.Web.Timeout.Duration,
	}
	if !wc.Enabled() {
		return nil
	}
	return websearch.New(wc)
}

func newSearchService(cfg *config.Config, store *storage.Store) (*search.Service, error) {
	normalizer, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	return search.NewService(store,
		search.WithNormalizer(normalizer),
		search.WithWeb(newWebSearcher(cfg), cfg.Web.MinResults),
	), nil
}

// createProvidersFromConfig builds a registry holding every configured
// provider instance.
func createProvidersFromConfig(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.GlobalRegistry()
	for _, name := range cfg.ProviderNames() {
		info := cfg.Providers[name]
		if err := registry.Create(name, info.Type, info.Config); err != nil {
			return nil, fmt.Errorf("creating provider %s: %w", name, err)
		}
	}
	return registry, nil
}

func newIngestor(cfg *config.Config) (*providers.Ingestor, error) {
	registry, err := createProvidersFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	filter, err := newFilter(cfg)
	if err != nil {
		return nil, err
	}
	return providers.NewIngestor(registry, guard.NewRateLimiter(), guard.NewCircuitBreaker(), filter), nil
}
