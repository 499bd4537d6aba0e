package storage

import (
	"context"
	"testing"

	"github.com/rubiojr/eventa/pkg/core"
)

func TestSearchInjectionAttempts(t *testing.T) {
	s := openTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	attempts := []struct {
		name string
		text string
	}{
		{"quote breakout", `jazz" OR "1"="1`},
		{"sql comment", `jazz'; DROP TABLE events; --`},
		{"union", `' UNION SELECT edit_token_hash FROM events --`},
		{"fts column filter", `title:jazz`},
		{"fts operators", `jazz NOT night OR NEAR(a b)`},
		{"fts star only", `*`},
		{"fts caret", `^jazz`},
		{"unbalanced parens", `((jazz`},
		{"null byte", "jazz\x00night"},
	}
	for _, tt := range attempts {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Search(ctx, SearchQuery{Text: tt.text}); err != nil {
				t.Errorf("%q should be treated as plain text, got %v", tt.text, err)
			}
		})
	}

	_, err := s.Search(ctx, SearchQuery{
		Categories:    []string{`music') OR 1=1 --`},
		Synonyms:      []string{`"; DELETE FROM events; --`},
		CategoryHints: []string{`market" OR "`},
	})
	if err != nil {
		t.Errorf("filters must be bound as parameters: %v", err)
	}

	counts, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[core.StatusApproved] != 5 || counts[core.StatusPending] != 1 {
		t.Errorf("events table changed: %v", counts)
	}
}
