package dedup

import (
	"testing"

	"github.com/rubiojr/eventa/pkg/core"
)

func res(source, title, url string) core.SearchResult {
	return core.SearchResult{Source: source, Title: title, URL: url}
}

func titlesOf(rs []core.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Title
	}
	return out
}

func TestMergeDropsTitleDuplicates(t *testing.T) {
	primary := []core.SearchResult{res("eventa", "Jazz Night", "")}
	secondary := []core.SearchResult{
		res("web", "jazz night", "https://a.com/x?utm_source=y"),
		res("web", "jazz night", "https://a.com/x"),
	}

	got := Merge(primary, secondary)
	if len(got) != 1 || got[0].Source != "eventa" {
		t.Fatalf("expected only the primary result, got %v", titlesOf(got))
	}
}

func TestMergeRules(t *testing.T) {
	tests := []struct {
		name      string
		primary   []core.SearchResult
		secondary []core.SearchResult
		want      []string
	}{
		{
			name:      "secondary contains seen title",
			primary:   []core.SearchResult{res("eventa", "Sagra del Tartufo", "")},
			secondary: []core.SearchResult{res("web", "  SAGRA DEL TARTUFO 2025 - Alba ", "https://b.com")},
			want:      []string{"Sagra del Tartufo"},
		},
		{
			name:      "secondary contained in seen title",
			primary:   []core.SearchResult{res("eventa", "Rome Summer Jazz Festival", "")},
			secondary: []core.SearchResult{res("web", "Summer Jazz", "https://c.com")},
			want:      []string{"Rome Summer Jazz Festival"},
		},
		{
			name:    "same origin and path",
			primary: []core.SearchResult{res("eventa", "Market", "https://Example.com/events/1?ref=a")},
			secondary: []core.SearchResult{
				res("web", "Completely different", "https://example.com/events/1#top"),
				res("web", "Other page", "https://example.com/events/2"),
			},
			want: []string{"Market", "Other page"},
		},
		{
			name:    "secondary deduplicated against earlier secondary",
			primary: nil,
			secondary: []core.SearchResult{
				res("web", "Wine Fair", "https://w.com/a"),
				res("web", "wine fair", "https://w.com/b"),
				res("web", "Food Fest", "https://w.com/a?x=1"),
			},
			want: []string{"Wine Fair"},
		},
		{
			name:      "primary never dropped",
			primary:   []core.SearchResult{res("eventa", "Jazz", ""), res("eventa", "jazz", "")},
			secondary: nil,
			want:      []string{"Jazz", "jazz"},
		},
		{
			name:      "distinct results kept in order",
			primary:   []core.SearchResult{res("eventa", "Jazz Night", "")},
			secondary: []core.SearchResult{res("web", "Flea Market", "https://m.com"), res("web", "Art Walk", "https://a.com")},
			want:      []string{"Jazz Night", "Flea Market", "Art Walk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titlesOf(Merge(tt.primary, tt.secondary))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
