package external

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

//go:embed blocklist.toml
var defaultBlocklist []byte

// BlockRule is one entry of the content blocklist.
type BlockRule struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
}

type blocklistFile struct {
	Rules []BlockRule `toml:"rule"`
}

// Blocklist is a compiled set of case-insensitive content rules.
type Blocklist struct {
	rules []compiledBlockRule
}

type compiledBlockRule struct {
	name string
	re   *regexp.Regexp
}

// DefaultBlocklist compiles the embedded rules.
func DefaultBlocklist() (*Blocklist, error) {
	return ParseBlocklist(defaultBlocklist)
}

// LoadBlocklist reads rules from a TOML file.
func LoadBlocklist(path string) (*Blocklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blocklist: %w", err)
	}
	return ParseBlocklist(data)
}

// ParseBlocklist decodes and compiles TOML blocklist data.
func ParseBlocklist(data []byte) (*Blocklist, error) {
	var f blocklistFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling blocklist: %w", err)
	}

	b := &Blocklist{}
	for i, r := range f.Rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("blocklist rule %d has no pattern", i)
		}
		re, err := regexp.Compile("(?is)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("blocklist rule %q: %w", r.Name, err)
		}
		b.rules = append(b.rules, compiledBlockRule{name: r.Name, re: re})
	}
	return b, nil
}

// Match returns the name of the first rule matching text.
func (b *Blocklist) Match(text string) (string, bool) {
	for _, r := range b.rules {
		if r.re.MatchString(text) {
			return r.name, true
		}
	}
	return "", false
}

// Len returns the number of rules.
func (b *Blocklist) Len() int {
	return len(b.rules)
}
