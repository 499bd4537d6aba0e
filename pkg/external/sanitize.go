package external

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxDescriptionLength is the sanitized description limit, ellipsis included.
const MaxDescriptionLength = 280

const ellipsis = "…"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// StripHTML returns the text content of an HTML fragment. Tags, attributes,
// comments and the bodies of script and style elements are dropped, and
// entities are decoded. Block-level tags become spaces so words do not run
// together.
func StripHTML(fragment string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input, keep what was read so far.
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}

// StripTracking removes utm_* and fbclid query parameters from every URL in
// text.
func StripTracking(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, CleanURL)
}

// CleanURL removes tracking parameters from a single URL. Unparseable input
// is returned unchanged.
func CleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" {
			q.Del(key)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// CollapseSpace trims s and reduces runs of whitespace to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, ending in an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + ellipsis
}

// SanitizeDescription produces the plain-text description of an external
// event.
func SanitizeDescription(raw string) string {
	text := CollapseSpace(StripTracking(StripHTML(raw)))
	return Truncate(text, MaxDescriptionLength)
}
