package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/dates"
	"github.com/rubiojr/eventa/pkg/dedup"
	"github.com/rubiojr/eventa/pkg/log"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/rubiojr/eventa/pkg/query"
	"github.com/rubiojr/eventa/pkg/storage"
)

// DefaultMinResults is the database result count below which web results
// are requested.
const DefaultMinResults = 5

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid search request")

// EventSearcher is the database side of search.
type EventSearcher interface {
	Search(ctx context.Context, q storage.SearchQuery) ([]core.SearchResult, error)
}

// WebSearcher supplements database results. Implementations never fail.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) []core.SearchResult
}

// Request is a search request.
type Request struct {
	Query      string   `json:"query"`
	UserLat    *float64 `json:"userLat,omitempty"`
	UserLng    *float64 `json:"userLng,omitempty"`
	Filters    Filters  `json:"filters"`
	IncludeWeb bool     `json:"includeWeb"`
	Limit      int      `json:"limit,omitempty"`
}

// Filters narrow a search.
type Filters struct {
	Free       *bool    `json:"free,omitempty"`
	DateRange  string   `json:"dateRange,omitempty"`
	Categories []string `json:"categories,omitempty"`
	RadiusKm   *float64 `json:"radiusKm,omitempty"`
}

// Response is a search response.
type Response struct {
	Results  []core.SearchResult `json:"results"`
	Query    query.Normalized    `json:"query"`
	Language string              `json:"language"`
}

// Service runs searches. Web settings can be swapped while it serves.
type Service struct {
	store      EventSearcher
	normalizer *query.Normalizer
	now        func() time.Time
	logger     *log.Logger

	mu         sync.RWMutex
	web        WebSearcher
	minResults int
}

// Option configures a Service.
type Option func(*Service)

// WithWeb enables the web supplement.
func WithWeb(web WebSearcher, minResults int) Option {
	return func(s *Service) {
		s.web = web
		s.minResults = minResults
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *query.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithClock replaces the time source for date filters.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a search service over store.
func NewService(store EventSearcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		normalizer: query.Default(),
		now:        time.Now,
		logger:     log.ForService("search"),
		minResults: DefaultMinResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetWeb replaces the web searcher and threshold. A nil web disables the
// supplement.
func (s *Service) SetWeb(web WebSearcher, minResults int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.web = web
	s.minResults = minResults
}

func (s *Service) webSettings() (WebSearcher, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.web, s.minResults
}

// Search runs the pipeline for req.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	resp, err := s.search(ctx, req)
	metrics.SearchDuration.Observe(float64(time.Since(started).Milliseconds()))

	switch {
	case errors.Is(err, ErrInvalidRequest):
		metrics.SearchRequests.WithLabelValues("invalid").Inc()
	case err != nil:
		metrics.SearchRequests.WithLabelValues("error").Inc()
		s.logger.Errorf("search %q failed: %v", req.Query, err)
	default:
		metrics.SearchRequests.WithLabelValues("ok").Inc()
	}
	return resp, err
}

func (s *Service) search(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	normalized := s.normalizer.Normalize(req.Query)
	language := s.normalizer.DetectLanguage(req.Query)
	free, dateRange := applyIntent(normalized.Intent, req.Filters)

	now := s.now()
	start, end, err := dates.Preset(dateRange, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	limit := req.limit()
	dbResults, err := s.store.Search(ctx, storage.SearchQuery{
		Text:          normalized.Normalized,
		Synonyms:      normalized.Synonyms,
		CategoryHints: normalized.Categories,
		Categories:    req.Filters.Categories,
		Overlap:       dates.BuildOverlap(now, &start, end),
		Free:          free,
		UserLat:       req.UserLat,
		UserLng:       req.UserLng,
		RadiusKm:      req.Filters.RadiusKm,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("database search: %w", err)
	}
	metrics.SearchResults.WithLabelValues(core.SourceEventa).Add(float64(len(dbResults)))

	results := dbResults
	if webResults := s.supplement(ctx, req, len(dbResults), limit); len(webResults) > 0 {
		results = dedup.Merge(dbResults, webResults)
		metrics.SearchResults.WithLabelValues(core.SourceWeb).Add(float64(len(results) - len(dbResults)))
	}

	s.logger.Debugf("search %q (%s, intent %s): %d database, %d total",
		req.Query, language, normalized.Intent, len(dbResults), len(results))

	return &Response{Results: results, Query: normalized, Language: language}, nil
}

func (s *Service) supplement(ctx context.Context, req Request, have, limit int) []core.SearchResult {
	if !req.IncludeWeb || req.Query == "" {
		return nil
	}
	web, minResults := s.webSettings()
	if web == nil {
		metrics.WebSearchCalls.WithLabelValues("disabled").Inc()
		return nil
	}
	if have >= minResults || have >= limit {
		return nil
	}
	results := web.Search(ctx, req.Query, limit-have)
	if len(results) == 0 {
		metrics.WebSearchCalls.WithLabelValues("empty").Inc()
	} else {
		metrics.WebSearchCalls.WithLabelValues("results").Inc()
	}
	return results
}

// applyIntent fills filters the caller left unset from the query intent:
// "free" turns on the price filter, "today" and "weekend" pick the range.
func applyIntent(intent string, f Filters) (bool, string) {
	free := false
	if f.Free != nil {
		free = *f.Free
	} else if intent == "free" {
		free = true
	}

	dateRange := f.DateRange
	if dateRange == "" && (intent == dates.RangeToday || intent == dates.RangeWeekend) {
		dateRange = intent
	}
	return free, dateRange
}
