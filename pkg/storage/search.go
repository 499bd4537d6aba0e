package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/dates"
)

// Search limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchQuery is the database side of an event search.
//
// Text is matched as prefix terms that must all appear. Synonyms and
// CategoryHints are alternative phrases, any of which also matches.
// Categories is a strict filter on the stored category list.
type SearchQuery struct {
	Text          string
	Synonyms      []string
	CategoryHints []string
	Categories    []string
	Overlap       dates.Overlap
	Free          bool
	UserLat       *float64
	UserLng       *float64
	RadiusKm      *float64
	Limit         int
}

func (q SearchQuery) hasLocation() bool {
	return q.UserLat != nil && q.UserLng != nil
}

func (q SearchQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	}
	return q.Limit
}

// Search runs one parameterized query over approved events. Errors are
// returned to the caller unchanged in meaning; an empty slice means no
// matches.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]core.SearchResult, error) {
	sqlQuery, args := buildSearchSQL(q)
	s.logger.Debugf("search sql: %s args: %v", sqlQuery, args)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()

	var events []*core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}

	results := make([]core.SearchResult, 0, len(events))
	for _, e := range events {
		r := core.ResultFromEvent(e)
		if q.hasLocation() && e.HasGeo() {
			d := HaversineKm(*q.UserLat, *q.UserLng, *e.Lat, *e.Lng)
			r.DistanceKm = &d
		}
		results = append(results, r)
	}
	return results, nil
}

func buildSearchSQL(q SearchQuery) (string, []any) {
	var sb strings.Builder
	var args []any
	var conds []string

	match := MatchExpression(q.Text, q.Synonyms, q.CategoryHints)

	sb.WriteString(`SELECT ` + eventColumns)
	if match != "" {
		sb.WriteString(` FROM events_fts JOIN events e ON e.seq = events_fts.rowid`)
		conds = append(conds, `events_fts MATCH ?`)
		args = append(args, match)
	} else {
		sb.WriteString(` FROM events e`)
	}

	conds = append(conds, `e.status = ?`)
	args = append(args, string(core.StatusApproved))

	if clause, overlapArgs := q.Overlap.SQL("e.start_at", "COALESCE(e.end_at, e.start_at)"); clause != "" {
		conds = append(conds, clause)
		args = append(args, overlapArgs...)
	}

	distance := ""
	if q.hasLocation() {
		distance = distanceFunc + `(?, ?, e.lat, e.lng)`
		if q.RadiusKm != nil {
			conds = append(conds, distance+` <= ?`)
			args = append(args, *q.UserLat, *q.UserLng, *q.RadiusKm)
		}
	}

	if q.Free {
		conds = append(conds, `e.price_free = 1`)
	}

	if cats := lowerAll(q.Categories); len(cats) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cats)), ", ")
		conds = append(conds, `EXISTS (SELECT 1 FROM json_each(e.categories) WHERE json_each.value IN (`+placeholders+`))`)
		for _, c := range cats {
			args = append(args, c)
		}
	}

	sb.WriteString(` WHERE `)
	sb.WriteString(strings.Join(conds, ` AND `))

	// Nearest first and events without coordinates last; relevance, then
	// start time, breaks ties.
	var order []string
	if distance != "" {
		order = append(order, distance+` IS NULL`, distance)
		args = append(args, *q.UserLat, *q.UserLng, *q.UserLat, *q.UserLng)
	}
	if match != "" {
		order = append(order, `bm25(events_fts)`)
	}
	order = append(order, `e.start_at`, `e.seq`)
	sb.WriteString(` ORDER BY ` + strings.Join(order, `, `))

	sb.WriteString(` LIMIT ?`)
	args = append(args, q.limit())

	return sb.String(), args
}

// MatchExpression builds the FTS5 query: every word of text as a prefix
// term, AND-ed, then OR-ed with each alternative phrase. It returns "" when
// there is nothing to match.
func MatchExpression(text string, phrases ...[]string) string {
	var alternatives []string
	seen := map[string]bool{}

	if words := Tokenize(text); len(words) > 0 {
		terms := make([]string, len(words))
		for i, w := range words {
			terms[i] = quote(w) + "*"
		}
		expr := strings.Join(terms, " AND ")
		if len(terms) > 1 {
			expr = "(" + expr + ")"
		}
		alternatives = append(alternatives, expr)
	}

	for _, list := range phrases {
		for _, p := range list {
			words := Tokenize(p)
			if len(words) == 0 {
				continue
			}
			phrase := quote(strings.Join(words, " "))
			if seen[phrase] {
				continue
			}
			seen[phrase] = true
			alternatives = append(alternatives, phrase)
		}
	}
	return strings.Join(alternatives, " OR ")
}

// Tokenize splits s into lowercase letter and digit runs, matching the
// word boundaries of the unicode61 tokenizer.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r)
	})
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func lowerAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
