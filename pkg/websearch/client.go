// Package websearch supplements sparse database results with items from the
// Google Custom Search JSON API.
//
// Web search is always best effort. Missing credentials disable it, and any
// transport failure, non-2xx status or undecodable body yields an empty
// result rather than an error.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/log"
)

// DefaultEndpoint is the Custom Search JSON API.
const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// MaxResultsPerCall is the provider's per-request cap.
const MaxResultsPerCall = 10

// Config holds the web search credentials. A zero Timeout leaves the HTTP
// client without a timeout; cancellation then relies on the caller's context.
type Config struct {
	APIKey   string
	EngineID string
	Endpoint string
	Timeout  time.Duration
}

// Enabled reports whether both credentials are present.
func (c Config) Enabled() bool {
	return c.APIKey != "" && c.EngineID != ""
}

// Client queries the web search provider.
type Client struct {
	config Config
	http   *http.Client
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock replaces the time source used when a snippet carries no date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	c := &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		logger: log.ForService("websearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client will make requests.
func (c *Client) Enabled() bool {
	return c.config.Enabled()
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search returns up to limit web results for query. It never returns an
// error; failures are logged and produce an empty slice.
func (c *Client) Search(ctx context.Context, query string, limit int) []core.SearchResult {
	if !c.Enabled() || limit <= 0 {
		return []core.SearchResult{}
	}

	items, err := c.fetch(ctx, query, min(limit, MaxResultsPerCall))
	if err != nil {
		c.logger.Warnf("web search for %q failed: %v", query, err)
		return []core.SearchResult{}
	}

	now := c.now()
	results := make([]core.SearchResult, 0, len(items.Items))
	for _, it := range items.Items {
		if it.Title == "" || it.Link == "" {
			continue
		}
		start := core.FormatTimestamp(ExtractDate(it.Snippet, now))
		results = append(results, core.SearchResult{
			Source:     core.SourceWeb,
			ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(it.Link)).String(),
			Title:      it.Title,
			StartAt:    start,
			EndAt:      start,
			URL:        it.Link,
			Snippet:    it.Snippet,
			Categories: []string{},
		})
	}
	c.logger.Debugf("web search for %q returned %d results", query, len(results))
	return results
}

func (c *Client) fetch(ctx context.Context, query string, num int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", query+" events")
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}
