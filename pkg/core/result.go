package core

import (
	"time"
)

// Result sources.
const (
	SourceEventa = "eventa"
	SourceWeb    = "web"
)

// TimestampLayout is the ISO-8601 layout used for every timestamp leaving the
// service and for timestamps stored in the database. The fixed width keeps
// lexical and chronological order identical.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout and plain RFC3339 values.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// SearchResult is a single row of a search response. It is built per request
// and never persisted.
//
// Source discriminates which optional fields are populated: web results never
// carry venue, address or coordinates. Venue, Address, Lat and Lng are always
// serialized, as null when unknown.
type SearchResult struct {
	Source     string   `json:"source"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	StartAt    string   `json:"startAt"`
	EndAt      string   `json:"endAt"`
	URL        string   `json:"url,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	Venue      *string  `json:"venue"`
	Address    *string  `json:"address"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Categories []string `json:"categories"`
	PriceFree  *bool    `json:"priceFree,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// ResultFromEvent maps a stored event into an "eventa" search result.
func ResultFromEvent(e *Event) SearchResult {
	free := e.PriceFree
	categories := e.Categories
	if categories == nil {
		categories = []string{}
	}
	return SearchResult{
		Source:     SourceEventa,
		ID:         e.ID,
		Title:      e.Title,
		StartAt:    FormatTimestamp(e.StartAt),
		EndAt:      FormatTimestamp(e.EffectiveEnd()),
		URL:        e.URL,
		Venue:      nullableString(e.VenueName),
		Address:    nullableString(e.Address),
		Lat:        e.Lat,
		Lng:        e.Lng,
		Categories: categories,
		PriceFree:  &free,
		ImageURL:   e.ImageURL,
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
