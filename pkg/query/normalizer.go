// Package query turns free-text search input into something the event store
// can use: a normalized string, the categories it implies and their synonyms
// in every supported language. It also guesses the language of the query.
//
// Everything here is a pure function of the input and the loaded Dictionary.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// IntentSearch is returned when no intent rule matches.
const IntentSearch = "search"

// Normalized is the result of normalizing a query.
type Normalized struct {
	Normalized string   `json:"normalized"`
	Synonyms   []string `json:"synonyms"`
	Categories []string `json:"categories"`
	Intent     string   `json:"intent"`
}

// Normalizer expands queries against a Dictionary. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	categories []CategoryEntry
	intents    []compiledRule
	languages  []compiledRule
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

// NewNormalizer compiles the dictionary rules.
func NewNormalizer(d *Dictionary) (*Normalizer, error) {
	n := &Normalizer{categories: d.Categories}

	for _, rule := range d.Intents {
		re, err := keywordPattern(rule.Keywords)
		if err != nil {
			return nil, fmt.Errorf("intent %s: %w", rule.Name, err)
		}
		n.intents = append(n.intents, compiledRule{name: rule.Name, re: re})
	}

	for _, rule := range d.Languages {
		var re *regexp.Regexp
		var err error
		if rule.Pattern != "" {
			re, err = regexp.Compile(rule.Pattern)
		} else {
			re, err = keywordPattern(rule.Keywords)
		}
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", rule.Code, err)
		}
		n.languages = append(n.languages, compiledRule{name: rule.Code, re: re})
	}

	return n, nil
}

// NewDefaultNormalizer builds a Normalizer from the embedded dictionary.
func NewDefaultNormalizer() (*Normalizer, error) {
	d, err := DefaultDictionary()
	if err != nil {
		return nil, err
	}
	return NewNormalizer(d)
}

var defaultNormalizer = sync.OnceValues(NewDefaultNormalizer)

// Default returns the shared Normalizer built from the embedded dictionary.
// The embedded data is covered by tests, so a failure here is a build defect
// and panics.
func Default() *Normalizer {
	n, err := defaultNormalizer()
	if err != nil {
		panic(fmt.Sprintf("query: embedded dictionary: %v", err))
	}
	return n
}

// Normalize expands q with the default dictionary.
func Normalize(q string) Normalized {
	return Default().Normalize(q)
}

// DetectLanguage guesses the language of q with the default dictionary.
func DetectLanguage(q string) string {
	return Default().DetectLanguage(q)
}

// NormalizeText lowercases, trims and collapses inner whitespace.
func NormalizeText(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Normalize expands q into categories and synonyms. It never fails; the
// slices are empty, not nil, when nothing matches.
func (n *Normalizer) Normalize(q string) Normalized {
	normalized := NormalizeText(q)
	out := Normalized{
		Normalized: normalized,
		Synonyms:   []string{},
		Categories: []string{},
		Intent:     n.intent(normalized),
	}
	if normalized == "" {
		return out
	}

	seenSyn := make(map[string]struct{})
	for _, c := range n.categories {
		if !categoryMatches(normalized, c) {
			continue
		}
		out.Categories = append(out.Categories, c.Name)
		for _, s := range c.Synonyms {
			if _, ok := seenSyn[s]; ok || s == "" {
				continue
			}
			seenSyn[s] = struct{}{}
			out.Synonyms = append(out.Synonyms, s)
		}
	}
	return out
}

// DetectLanguage returns the code of the first language rule matching q, or
// "en".
func (n *Normalizer) DetectLanguage(q string) string {
	lowered := strings.ToLower(q)
	for _, rule := range n.languages {
		if rule.re.MatchString(lowered) {
			return rule.name
		}
	}
	return "en"
}

func (n *Normalizer) intent(normalized string) string {
	for _, rule := range n.intents {
		if rule.re.MatchString(normalized) {
			return rule.name
		}
	}
	return IntentSearch
}

func categoryMatches(q string, c CategoryEntry) bool {
	if strings.Contains(q, c.Name) {
		return true
	}
	for _, s := range c.Synonyms {
		if s != "" && strings.Contains(q, s) {
			return true
		}
	}
	return false
}
