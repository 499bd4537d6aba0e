package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

func newTestClient(url string) *Client {
	return New(Config{APIKey: "key", EngineID: "cx", Endpoint: url}, WithClock(func() time.Time { return fixedNow }))
}

func TestSearchDisabledWithoutCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	for _, cfg := range []Config{{}, {APIKey: "k"}, {EngineID: "cx"}} {
		cfg.Endpoint = srv.URL
		c := New(cfg)
		if c.Enabled() {
			t.Errorf("%+v should be disabled", cfg)
		}
		results := c.Search(context.Background(), "jazz", 5)
		if results == nil || len(results) != 0 {
			t.Errorf("disabled client should return an empty slice, got %v", results)
		}
	}
	if called {
		t.Error("disabled client must not call the API")
	}
}

func TestSearchMapsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "jazz rome events" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("num") != "10" {
			t.Errorf("num should be capped at 10, got %q", q.Get("num"))
		}
		if q.Get("key") != "key" || q.Get("cx") != "cx" {
			t.Errorf("missing credentials in %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Rome Jazz Festival","link":"https://jazz.example/rome","snippet":"Join us on 14/07/2025 for music"},
			{"title":"Jazz Club","link":"https://club.example","snippet":"Every night"},
			{"title":"","link":"https://skip.example","snippet":""}
		]}`))
	}))
	defer srv.Close()

	results := newTestClient(srv.URL).Search(context.Background(), "jazz rome", 25)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	r := results[0]
	if r.Source != "web" || r.URL != "https://jazz.example/rome" || r.Snippet == "" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.StartAt != "2025-07-14T00:00:00.000Z" || r.EndAt != r.StartAt {
		t.Errorf("startAt = %s endAt = %s", r.StartAt, r.EndAt)
	}
	if r.Venue != nil || r.Address != nil || r.Lat != nil || r.Lng != nil {
		t.Error("web results must not carry venue or geo")
	}
	if results[1].StartAt != "2025-06-11T12:00:00.000Z" {
		t.Errorf("fallback date = %s", results[1].StartAt)
	}
	if r.ID == "" || r.ID == results[1].ID {
		t.Error("ids should be derived from links")
	}
}

func TestSearchFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{not json")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			results := newTestClient(srv.URL).Search(context.Background(), "jazz", 5)
			if results == nil || len(results) != 0 {
				t.Errorf("expected empty slice, got %v", results)
			}
		})
	}
}

func TestSearchTransportErrorYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if results := newTestClient(url).Search(context.Background(), "jazz", 5); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestSearchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	results := newTestClient(srv.URL).Search(ctx, "jazz", 5)
	if len(results) != 0 {
		t.Error("canceled search should be empty")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("context cancellation was not passed to the request")
	}
}

func TestSearchRequestsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("num"); got != "3" {
			t.Errorf("num = %q, want 3", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	newTestClient(srv.URL).Search(context.Background(), "jazz", 3)
}
