// Package jsonfeed reads external events from an HTTP endpoint serving
// JSON, either a bare array of records or an object with an "events" array.
package jsonfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rubiojr/eventa/pkg/external"
	"github.com/rubiojr/eventa/pkg/providers"
)

const maxBodyBytes = 10 << 20

func init() {
	providers.RegisterPrototype("jsonfeed", &Provider{})
}

// Config configures a feed instance.
type Config struct {
	URL       string `toml:"url"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// Validate checks the feed URL and timeout.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url must be specified")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url %q must be http or https", c.URL)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	return nil
}

// Provider fetches one JSON feed.
type Provider struct {
	config *Config
	client *http.Client
	name   string
}

func (p *Provider) Type() string { return "jsonfeed" }

func (p *Provider) Name() string { return p.name }

func (p *Provider) ConfigType() any { return &Config{} }

// Factory creates a configured feed.
func (p *Provider) Factory(name string, config any) (providers.Provider, error) {
	cfg, ok := config.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("jsonfeed: expected *jsonfeed.Config, got %T", config)
	}
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("jsonfeed: %w", err)
		}
		timeout = d
	}
	return &Provider{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		name:   name,
	}, nil
}

// Fetch downloads and decodes the feed.
func (p *Provider) Fetch(ctx context.Context) ([]external.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return Decode(body)
}

// Decode parses a feed body.
func Decode(body []byte) ([]external.Raw, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty feed")
	}

	var records []external.Raw
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding feed: %w", err)
		}
		return records, nil
	}

	var wrapped struct {
		Events []external.Raw `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}
	if wrapped.Events == nil {
		return nil, fmt.Errorf("decoding feed: no events array")
	}
	return wrapped.Events, nil
}
