package query

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed dictionary.toml
var defaultDictionary []byte

// Dictionary is the static configuration data behind the normalizer and the
// language detector.
type Dictionary struct {
	Categories []CategoryEntry `toml:"category"`
	Languages  []LanguageRule  `toml:"language"`
	Intents    []IntentRule    `toml:"intent"`
}

// CategoryEntry maps a canonical category to its multilingual synonyms.
type CategoryEntry struct {
	Name     string   `toml:"name"`
	Synonyms []string `toml:"synonyms"`
}

// LanguageRule detects a language either by raw pattern or by keywords.
type LanguageRule struct {
	Code     string   `toml:"code"`
	Pattern  string   `toml:"pattern"`
	Keywords []string `toml:"keywords"`
}

// IntentRule tags a query with an intent when one of its keywords appears.
type IntentRule struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// DefaultDictionary returns the dictionary embedded in the binary.
func DefaultDictionary() (*Dictionary, error) {
	return ParseDictionary(defaultDictionary)
}

// LoadDictionary reads a dictionary from a TOML file on disk.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary decodes TOML dictionary data and lowercases every entry.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshaling dictionary: %w", err)
	}

	for i := range d.Categories {
		c := &d.Categories[i]
		c.Name = strings.ToLower(strings.TrimSpace(c.Name))
		if c.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		for j, s := range c.Synonyms {
			c.Synonyms[j] = strings.ToLower(strings.TrimSpace(s))
		}
	}
	for i, l := range d.Languages {
		if l.Code == "" {
			return nil, fmt.Errorf("language rule %d has no code", i)
		}
		if l.Pattern == "" && len(l.Keywords) == 0 {
			return nil, fmt.Errorf("language rule %s needs a pattern or keywords", l.Code)
		}
	}
	return &d, nil
}

// keywordPattern builds a case-insensitive regexp matching any keyword as a
// whole word. Boundaries are expressed with Unicode letter classes because
// RE2's \b only understands ASCII word characters.
func keywordPattern(keywords []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("no keywords")
	}
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\p{N}]|$)`)
}
