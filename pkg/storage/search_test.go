package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/dates"
)

// seedSearch stores a small approved catalogue plus one pending event.
func seedSearch(t *testing.T, s *Store) map[string]string {
	t.Helper()
	ctx := context.Background()
	day := 24 * time.Hour

	events := []*core.Event{
		{Title: "Jazz Night", Description: "Live quartet", VenueName: "Blue Note",
			Categories: []string{"music"}, StartAt: testNow.Add(2 * day),
			Lat: ptr(45.4642), Lng: ptr(9.19)},
		{Title: "Farmers Market", Description: "Local produce", Categories: []string{"market", "food"},
			PriceFree: true, StartAt: testNow.Add(day), Lat: ptr(41.91), Lng: ptr(12.50)},
		{Title: "Mercato contadino", Description: "Prodotti locali", Categories: []string{"market"},
			StartAt: testNow.Add(-7 * day), EndAt: ptr(testNow.Add(21 * day))},
		{Title: "Old Jazz Festival", Categories: []string{"music", "festival"},
			StartAt: testNow.Add(-10 * day), EndAt: ptr(testNow.Add(-3 * day))},
		{Title: "Jazz Brunch", Categories: []string{"music", "food"},
			StartAt: testNow.Add(-2 * time.Hour)},
	}

	ids := map[string]string{}
	for _, e := range events {
		mustCreate(t, s, e)
		if _, err := s.SetStatus(ctx, e.ID, core.StatusApproved, ""); err != nil {
			t.Fatal(err)
		}
		ids[e.Title] = e.ID
	}
	mustCreate(t, s, &core.Event{Title: "Jazz Pending", StartAt: testNow.Add(day)})
	return ids
}

func titles(results []core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSearchText(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)

	results, err := s.Search(context.Background(), SearchQuery{
		Text:    "jazz",
		Overlap: dates.BuildOverlap(testNow, nil, nil),
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := titles(results)
	if len(got) != 1 || got[0] != "Jazz Night" {
		t.Fatalf("expected only the upcoming approved jazz event, got %v", got)
	}

	r := results[0]
	if r.Source != core.SourceEventa || r.Venue == nil || *r.Venue != "Blue Note" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Address != nil {
		t.Errorf("empty address should be null")
	}
	if r.EndAt != r.StartAt {
		t.Errorf("missing end should equal start, got %s / %s", r.StartAt, r.EndAt)
	}
}

func TestSearchPrefixAndVenue(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)

	results, err := s.Search(context.Background(), SearchQuery{Text: "blue no"})
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 1 || got[0] != "Jazz Night" {
		t.Errorf("venue prefix match failed: %v", got)
	}
}

func TestSearchSynonymsWidenMatch(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)

	results, err := s.Search(context.Background(), SearchQuery{
		Text:          "fiesta",
		Synonyms:      []string{"market", "mercato", "farmers market"},
		CategoryHints: []string{"market"},
		Overlap:       dates.BuildOverlap(testNow, nil, nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := titles(results)
	if len(got) != 2 || !contains(got, "Farmers Market") || !contains(got, "Mercato contadino") {
		t.Errorf("expected both markets, got %v", got)
	}
}

func TestSearchOverlap(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)

	results, err := s.Search(context.Background(), SearchQuery{
		Overlap: dates.BuildOverlap(testNow, nil, nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := titles(results)
	if contains(got, "Old Jazz Festival") {
		t.Error("fully ended event must be excluded")
	}
	if contains(got, "Jazz Brunch") {
		t.Error("single-moment event in the past must be excluded")
	}
	if !contains(got, "Mercato contadino") {
		t.Error("running multi-day event must be included")
	}
	if contains(got, "Jazz Pending") {
		t.Error("pending events must never be searchable")
	}
	// Ordered by start time without a text query.
	if got[0] != "Mercato contadino" {
		t.Errorf("expected start_at order, got %v", got)
	}

	end := testNow.Add(36 * time.Hour)
	results, err = s.Search(context.Background(), SearchQuery{
		Overlap: dates.BuildOverlap(testNow, nil, &end),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); contains(got, "Jazz Night") || len(got) != 2 {
		t.Errorf("upper bound not applied: %v", got)
	}
}

func TestSearchCategoriesAndFree(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()
	overlap := dates.BuildOverlap(testNow, nil, nil)

	results, err := s.Search(ctx, SearchQuery{Categories: []string{"MARKET"}, Overlap: overlap})
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 2 || contains(got, "Jazz Night") {
		t.Errorf("category filter: %v", got)
	}

	results, err = s.Search(ctx, SearchQuery{Free: true, Overlap: overlap})
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 1 || got[0] != "Farmers Market" {
		t.Errorf("free filter: %v", got)
	}
	if results[0].PriceFree == nil || !*results[0].PriceFree {
		t.Error("priceFree should be true")
	}
}

func TestSearchGeo(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()
	overlap := dates.BuildOverlap(testNow, nil, nil)
	rome := SearchQuery{UserLat: ptr(41.9028), UserLng: ptr(12.4964), Overlap: overlap}

	results, err := s.Search(ctx, rome)
	if err != nil {
		t.Fatal(err)
	}
	got := titles(results)
	want := []string{"Farmers Market", "Jazz Night", "Mercato contadino"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if d := results[0].DistanceKm; d == nil || *d > 2 {
		t.Errorf("nearby distance = %v", d)
	}
	if results[2].DistanceKm != nil {
		t.Error("events without coordinates carry no distance")
	}

	rome.RadiusKm = ptr(50.0)
	results, err = s.Search(ctx, rome)
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 1 || got[0] != "Farmers Market" {
		t.Errorf("radius filter: %v", got)
	}
}

func TestSearchLimit(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)

	results, err := s.Search(context.Background(), SearchQuery{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestSearchClosedStoreFailsLoud(t *testing.T) {
	s := openTestStore(t)
	_ = s.Close()
	if _, err := s.Search(context.Background(), SearchQuery{Text: "jazz"}); err == nil {
		t.Fatal("database errors must be returned")
	}
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		phrases [][]string
		want    string
	}{
		{"empty", "", nil, ""},
		{"single", "Jazz", nil, `"jazz"*`},
		{"words", "jazz  night!", nil, `("jazz"* AND "night"*)`},
		{"phrases", "fiesta", [][]string{{"market", "farmers market"}, {"market"}}, `"fiesta"* OR "market" OR "farmers market"`},
		{"only phrases", "!!", [][]string{{"music"}}, `"music"`},
		{"greek", "Αγορά", nil, `"αγορά"*`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchExpression(tt.text, tt.phrases...); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	d := HaversineKm(41.9028, 12.4964, 45.4642, 9.19)
	if d < 470 || d > 485 {
		t.Errorf("Rome to Milan = %.1f km", d)
	}
	if HaversineKm(10, 10, 10, 10) != 0 {
		t.Error("same point should be 0")
	}
}

func TestOptimizeKeepsIndexUsable(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	if err := s.Optimize(ctx); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	results, err := s.Search(ctx, SearchQuery{Text: "jazz", Overlap: dates.BuildOverlap(testNow, nil, nil)})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result after optimize, got %d", len(results))
	}
}

func TestSearchGeoRanksBeyondRelevanceWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Far events start earlier, so they win on start time and outnumber any
	// fixed window of limit rows.
	for i := 0; i < 12; i++ {
		e := &core.Event{Title: fmt.Sprintf("Jazz %d", i), StartAt: testNow.Add(time.Duration(i+1) * time.Hour),
			Lat: ptr(60.17), Lng: ptr(24.94)}
		mustCreate(t, s, e)
		if _, err := s.SetStatus(ctx, e.ID, core.StatusApproved, ""); err != nil {
			t.Fatal(err)
		}
	}
	near := &core.Event{Title: "Jazz Nearby", StartAt: testNow.Add(48 * time.Hour), Lat: ptr(41.9), Lng: ptr(12.5)}
	mustCreate(t, s, near)
	if _, err := s.SetStatus(ctx, near.ID, core.StatusApproved, ""); err != nil {
		t.Fatal(err)
	}

	q := SearchQuery{Text: "jazz", UserLat: ptr(41.9), UserLng: ptr(12.5), RadiusKm: ptr(10.0), Limit: 1}
	results, err := s.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 1 || got[0] != "Jazz Nearby" {
		t.Fatalf("radius search: %v", got)
	}
	if d := results[0].DistanceKm; d == nil || *d > 0.01 {
		t.Errorf("distance = %v", d)
	}

	q.RadiusKm = nil
	results, err = s.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); len(got) != 1 || got[0] != "Jazz Nearby" {
		t.Errorf("nearest first without radius: %v", got)
	}
}
