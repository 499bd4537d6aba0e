// Package external validates and normalizes event records fetched from
// third-party providers before they are shown or stored.
//
// The filter is a pure gate: it never touches storage. A rejected record
// yields a *Rejection carrying a stable error code.
package external

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/eventa/pkg/core"
)

// Rejection codes.
const (
	ErrSchemaRequired    = "ERR_EXT_SCHEMA_REQUIRED"
	ErrSchemaTitleLength = "ERR_EXT_SCHEMA_TITLE_LENGTH"
	ErrSchemaDate        = "ERR_EXT_SCHEMA_DATE"
	ErrSafetyFilter      = "ERR_EXT_SAFETY_FILTER"
	ErrURLScheme         = "ERR_EXT_URL_SCHEME"
)

// MaxTitleLength is the longest accepted title, in characters, after trimming.
const MaxTitleLength = 140

// Raw is an external record as decoded from a provider's JSON.
type Raw map[string]any

// Rejection explains why a record was not admitted.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return r.Code + ": " + r.Message
}

func reject(code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Event is an admitted external record.
type Event struct {
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	Time        *string `json:"time"`
	City        *string `json:"city"`
	Venue       *string `json:"venue"`
	Description *string `json:"description"`
	SourceLabel string  `json:"sourceLabel"`
	SourceURL   *string `json:"sourceUrl"`
}

// StartTime combines Date and Time in loc. Events without a time start at
// midnight.
func (e *Event) StartTime(loc *time.Location) (time.Time, error) {
	layout, value := "2006-01-02", e.Date
	if e.Time != nil {
		layout, value = "2006-01-02 15:04", e.Date+" "+*e.Time
	}
	return time.ParseInLocation(layout, value, loc)
}

// ToEvent converts the admitted record into a pending submission.
func (e *Event) ToEvent(provider string, loc *time.Location) (*core.Event, error) {
	start, err := e.StartTime(loc)
	if err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}
	ev := &core.Event{
		Title:   e.Title,
		StartAt: start,
		Status:  core.StatusPending,
		Source:  provider,
	}
	if e.Description != nil {
		ev.Description = *e.Description
	}
	if e.Venue != nil {
		ev.VenueName = *e.Venue
	}
	if e.City != nil {
		ev.City = *e.City
	}
	if e.SourceURL != nil {
		ev.URL = *e.SourceURL
	}
	return ev, nil
}

// Filter admits external records.
type Filter struct {
	blocklist *Blocklist
	caser     cases.Caser
}

// NewFilter returns a filter using the given blocklist.
func NewFilter(b *Blocklist) *Filter {
	return &Filter{blocklist: b, caser: cases.Title(language.Und)}
}

// NewDefaultFilter returns a filter using the embedded blocklist.
func NewDefaultFilter() (*Filter, error) {
	b, err := DefaultBlocklist()
	if err != nil {
		return nil, err
	}
	return NewFilter(b), nil
}

var hhmm = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)`)

// Validate checks raw in a fixed order and returns the first failure:
// required title, title length, date, blocklist, description sanitizing,
// then source URL scheme.
func (f *Filter) Validate(raw Raw, provider string) (*Event, error) {
	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		return nil, reject(ErrSchemaRequired, "title is required")
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return nil, reject(ErrSchemaTitleLength, "title is %d characters, maximum is %d", n, MaxTitleLength)
	}

	date, clock, err := parseWhen(raw)
	if err != nil {
		return nil, err
	}

	// The blocklist sees the raw fields first, then the sanitized text so
	// that words split by markup still match.
	rawDescription := stringField(raw, "description")
	if rule, hit := f.blocklist.Match(title + "\n" + rawDescription); hit {
		return nil, reject(ErrSafetyFilter, "content matched blocklist rule %q", rule)
	}
	description := SanitizeDescription(rawDescription)
	if rule, hit := f.blocklist.Match(title + "\n" + description); hit {
		return nil, reject(ErrSafetyFilter, "content matched blocklist rule %q", rule)
	}

	var sourceURL *string
	if rawURL := strings.TrimSpace(firstString(raw, "sourceUrl", "url")); rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, reject(ErrURLScheme, "source url %q must use http or https", rawURL)
		}
		cleaned := CleanURL(rawURL)
		sourceURL = &cleaned
	}

	return &Event{
		Title:       CollapseSpace(title),
		Date:        date,
		Time:        clock,
		City:        optional(stringField(raw, "city")),
		Venue:       optional(stringField(raw, "venue")),
		Description: optional(description),
		SourceLabel: f.SourceLabel(provider),
		SourceURL:   sourceURL,
	}, nil
}

// SourceLabel turns a provider name such as "visit_rome" into "From Visit Rome".
func (f *Filter) SourceLabel(provider string) string {
	return "From " + f.caser.String(strings.ReplaceAll(provider, "_", " "))
}

// parseWhen reads the date from "date" or "startAt" and the time of day from
// "time" or a timestamped "startAt".
func parseWhen(raw Raw) (string, *string, error) {
	value := strings.TrimSpace(firstString(raw, "date", "startAt"))
	if value == "" {
		return "", nil, reject(ErrSchemaDate, "date or startAt is required")
	}

	var date string
	var clock *string
	if t, err := time.Parse("2006-01-02", value); err == nil {
		date = t.Format("2006-01-02")
	} else if t, err := time.Parse(time.RFC3339, value); err == nil {
		date = t.Format("2006-01-02")
		c := t.Format("15:04")
		clock = &c
	} else {
		return "", nil, reject(ErrSchemaDate, "unparseable date %q", value)
	}

	// An explicit date field can still carry a timestamped startAt.
	if clock == nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(stringField(raw, "startAt"))); err == nil {
			c := t.Format("15:04")
			clock = &c
		}
	}
	if m := hhmm.FindStringSubmatch(strings.TrimSpace(stringField(raw, "time"))); m != nil {
		hour := m[1]
		if len(hour) == 1 {
			hour = "0" + hour
		}
		c := hour + ":" + m[2]
		clock = &c
	}
	return date, clock, nil
}

func stringField(raw Raw, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func firstString(raw Raw, keys ...string) string {
	for _, k := range keys {
		if s := stringField(raw, k); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
