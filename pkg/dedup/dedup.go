// Package dedup merges database and web search results.
//
// Matching is a cheap heuristic: normalized titles that are equal or contain
// one another, or URLs with the same origin and path. Near duplicates with
// differently worded titles survive.
package dedup

import (
	"net/url"
	"strings"

	"github.com/rubiojr/eventa/pkg/core"
)

// Merge keeps every primary result and appends the secondary results that
// do not duplicate anything seen so far, preserving order.
func Merge(primary, secondary []core.SearchResult) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(primary)+len(secondary))
	var titles []string
	urls := map[string]bool{}

	remember := func(r core.SearchResult) {
		if t := normalizeTitle(r.Title); t != "" {
			titles = append(titles, t)
		}
		if key := urlKey(r.URL); key != "" {
			urls[key] = true
		}
	}

	for _, r := range primary {
		out = append(out, r)
		remember(r)
	}

	for _, r := range secondary {
		if isDuplicate(r, titles, urls) {
			continue
		}
		out = append(out, r)
		remember(r)
	}
	return out
}

func isDuplicate(r core.SearchResult, titles []string, urls map[string]bool) bool {
	if key := urlKey(r.URL); key != "" && urls[key] {
		return true
	}
	t := normalizeTitle(r.Title)
	if t == "" {
		return false
	}
	for _, seen := range titles {
		if t == seen || strings.Contains(t, seen) || strings.Contains(seen, t) {
			return true
		}
	}
	return false
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// urlKey returns origin plus path, ignoring query string and fragment.
func urlKey(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.Path
}
