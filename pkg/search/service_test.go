package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/storage"
)

var testNow = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	results []core.SearchResult
	err     error
	got     storage.SearchQuery
	calls   int
}

func (f *fakeStore) Search(ctx context.Context, q storage.SearchQuery) ([]core.SearchResult, error) {
	f.calls++
	f.got = q
	return f.results, f.err
}

type fakeWeb struct {
	results   []core.SearchResult
	gotQuery  string
	gotLimit  int
	callCount int
}

func (f *fakeWeb) Search(ctx context.Context, query string, limit int) []core.SearchResult {
	f.callCount++
	f.gotQuery = query
	f.gotLimit = limit
	return f.results
}

func dbResult(title string) core.SearchResult {
	return core.SearchResult{Source: core.SourceEventa, ID: title, Title: title, Categories: []string{}}
}

func webResult(title, url string) core.SearchResult {
	return core.SearchResult{Source: core.SourceWeb, ID: url, Title: title, URL: url, Categories: []string{}}
}

func newService(store EventSearcher, web WebSearcher) *Service {
	opts := []Option{WithClock(func() time.Time { return testNow })}
	if web != nil {
		opts = append(opts, WithWeb(web, 5))
	}
	return NewService(store, opts...)
}

func TestSearchNormalizesAndQueriesStore(t *testing.T) {
	store := &fakeStore{results: []core.SearchResult{dbResult("Mercatino di Natale")}}
	svc := newService(store, nil)

	resp, err := svc.Search(context.Background(), Request{Query: "  Fiesta   Mercato "})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.got.Text != "fiesta mercato" {
		t.Errorf("text = %q", store.got.Text)
	}
	if len(store.got.CategoryHints) == 0 || store.got.CategoryHints[0] != "market" {
		t.Errorf("category hints = %v", store.got.CategoryHints)
	}
	if len(store.got.Categories) != 0 {
		t.Errorf("normalizer categories must not become a strict filter: %v", store.got.Categories)
	}
	if store.got.Overlap.EndAtGTE == nil || !store.got.Overlap.EndAtGTE.Equal(testNow) {
		t.Errorf("overlap should start now, got %v", store.got.Overlap.EndAtGTE)
	}
	if store.got.Overlap.StartAtLTE != nil {
		t.Error("no date range means no upper bound")
	}
	if store.got.Limit != storage.DefaultLimit {
		t.Errorf("limit = %d", store.got.Limit)
	}
	if resp.Query.Normalized != "fiesta mercato" || resp.Language != "it" {
		t.Errorf("unexpected response metadata %+v %s", resp.Query, resp.Language)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %v", resp.Results)
	}
}

func TestSearchWebSupplement(t *testing.T) {
	store := &fakeStore{results: []core.SearchResult{dbResult("Jazz Night")}}
	web := &fakeWeb{results: []core.SearchResult{
		webResult("jazz night", "https://a.com/x"),
		webResult("Blues Evening", "https://b.com/y"),
	}}
	svc := newService(store, web)

	resp, err := svc.Search(context.Background(), Request{Query: "jazz", IncludeWeb: true, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if web.callCount != 1 || web.gotQuery != "jazz" || web.gotLimit != 9 {
		t.Errorf("web called %d times with %q/%d", web.callCount, web.gotQuery, web.gotLimit)
	}
	if len(resp.Results) != 2 || resp.Results[1].Title != "Blues Evening" {
		t.Errorf("expected deduplicated merge, got %v", resp.Results)
	}
}

func TestSearchSkipsWeb(t *testing.T) {
	many := make([]core.SearchResult, 5)
	for i := range many {
		many[i] = dbResult(string(rune('a' + i)))
	}

	tests := []struct {
		name string
		db   []core.SearchResult
		req  Request
	}{
		{"not requested", nil, Request{Query: "jazz"}},
		{"enough database results", many, Request{Query: "jazz", IncludeWeb: true}},
		{"empty query", nil, Request{IncludeWeb: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			web := &fakeWeb{results: []core.SearchResult{webResult("x", "https://x.com")}}
			svc := newService(&fakeStore{results: tt.db}, web)
			if _, err := svc.Search(context.Background(), tt.req); err != nil {
				t.Fatal(err)
			}
			if web.callCount != 0 {
				t.Error("web search should not run")
			}
		})
	}
}

func TestSearchSetWeb(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, nil)
	web := &fakeWeb{}

	_, _ = svc.Search(context.Background(), Request{Query: "jazz", IncludeWeb: true})
	svc.SetWeb(web, 1)
	_, _ = svc.Search(context.Background(), Request{Query: "jazz", IncludeWeb: true})
	if web.callCount != 1 {
		t.Errorf("web should be used after SetWeb, calls = %d", web.callCount)
	}
	svc.SetWeb(nil, 1)
	_, _ = svc.Search(context.Background(), Request{Query: "jazz", IncludeWeb: true})
	if web.callCount != 1 {
		t.Error("nil web should disable the supplement")
	}
}

func TestSearchDatabaseErrorPropagates(t *testing.T) {
	boom := errors.New("disk I/O error")
	web := &fakeWeb{}
	svc := newService(&fakeStore{err: boom}, web)

	_, err := svc.Search(context.Background(), Request{Query: "jazz", IncludeWeb: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected database error, got %v", err)
	}
	if errors.Is(err, ErrInvalidRequest) {
		t.Error("database failures are not request errors")
	}
	if web.callCount != 0 {
		t.Error("web must not mask a database failure")
	}
}

func TestSearchIntentFillsFilters(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, nil)

	if _, err := svc.Search(context.Background(), Request{Query: "free concert"}); err != nil {
		t.Fatal(err)
	}
	if !store.got.Free {
		t.Error("free intent should enable the price filter")
	}

	no := false
	if _, err := svc.Search(context.Background(), Request{Query: "free concert", Filters: Filters{Free: &no}}); err != nil {
		t.Fatal(err)
	}
	if store.got.Free {
		t.Error("explicit filter wins over intent")
	}

	if _, err := svc.Search(context.Background(), Request{Query: "jazz tonight"}); err != nil {
		t.Fatal(err)
	}
	end := store.got.Overlap.StartAtLTE
	if end == nil || end.Day() != 11 || end.Hour() != 23 {
		t.Errorf("today intent should bound the search to today, got %v", end)
	}
}

func TestSearchStrictCategories(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, nil)
	_, err := svc.Search(context.Background(), Request{Filters: Filters{Categories: []string{"wine"}, DateRange: "month"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.got.Categories) != 1 || store.got.Categories[0] != "wine" {
		t.Errorf("categories = %v", store.got.Categories)
	}
	if store.got.Overlap.StartAtLTE == nil || store.got.Overlap.StartAtLTE.Month() != time.June {
		t.Errorf("month range end = %v", store.got.Overlap.StartAtLTE)
	}
}

func TestSearchInvalidRequest(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, nil)
	_, err := svc.Search(context.Background(), Request{Filters: Filters{DateRange: "fortnight"}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if store.calls != 0 {
		t.Error("invalid requests must not reach the store")
	}
}
