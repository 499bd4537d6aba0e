package search

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rubiojr/eventa/pkg/dates"
	"github.com/rubiojr/eventa/pkg/storage"
)

// MaxQueryLength bounds the free-text query, in bytes.
const MaxQueryLength = 500

func (r Request) limit() int {
	switch {
	case r.Limit <= 0:
		return storage.DefaultLimit
	case r.Limit > storage.MaxLimit:
		return storage.MaxLimit
	}
	return r.Limit
}

// Validate checks field ranges and the date range name.
func (r Request) Validate() error {
	if len(r.Query) > MaxQueryLength {
		return fmt.Errorf("%w: query longer than %d bytes", ErrInvalidRequest, MaxQueryLength)
	}
	if (r.UserLat == nil) != (r.UserLng == nil) {
		return fmt.Errorf("%w: userLat and userLng must be sent together", ErrInvalidRequest)
	}
	if !finite(r.UserLat) || !finite(r.UserLng) || !finite(r.Filters.RadiusKm) {
		return fmt.Errorf("%w: coordinates and radius must be finite numbers", ErrInvalidRequest)
	}
	if r.UserLat != nil && (*r.UserLat < -90 || *r.UserLat > 90 || *r.UserLng < -180 || *r.UserLng > 180) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidRequest)
	}
	if r.Filters.RadiusKm != nil && *r.Filters.RadiusKm <= 0 {
		return fmt.Errorf("%w: radiusKm must be positive", ErrInvalidRequest)
	}
	switch r.Filters.DateRange {
	case "", dates.RangeToday, dates.RangeWeekend, dates.RangeMonth, dates.RangeAll:
	default:
		return fmt.Errorf("%w: unknown dateRange %q", ErrInvalidRequest, r.Filters.DateRange)
	}
	return nil
}

// ParseRequest decodes a JSON search request.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(io.LimitReader(body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: decoding body: %v", ErrInvalidRequest, err)
	}
	req.Query = strings.TrimSpace(req.Query)
	return req, req.Validate()
}

// ParseQueryParams builds a request from URL parameters:
// q, lat, lng, free, date_range, category (repeatable or comma separated),
// radius_km, web and limit.
func ParseQueryParams(values url.Values) (Request, error) {
	req := Request{
		Query: strings.TrimSpace(values.Get("q")),
		Filters: Filters{
			DateRange: values.Get("date_range"),
		},
	}

	var err error
	if req.UserLat, err = floatParam(values, "lat"); err != nil {
		return Request{}, err
	}
	if req.UserLng, err = floatParam(values, "lng"); err != nil {
		return Request{}, err
	}
	if req.Filters.RadiusKm, err = floatParam(values, "radius_km"); err != nil {
		return Request{}, err
	}
	if v := values.Get("free"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Request{}, fmt.Errorf("%w: free: %v", ErrInvalidRequest, err)
		}
		req.Filters.Free = &b
	}
	if v := values.Get("web"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Request{}, fmt.Errorf("%w: web: %v", ErrInvalidRequest, err)
		}
		req.IncludeWeb = b
	}
	// Invalid limits fall back to the default.
	if v := values.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			req.Limit = n
		}
	}
	for _, c := range values["category"] {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.Filters.Categories = append(req.Filters.Categories, part)
			}
		}
	}

	return req, req.Validate()
}

func floatParam(values url.Values, name string) (*float64, error) {
	v := values.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, name, err)
	}
	if !finite(&f) {
		return nil, fmt.Errorf("%w: %s: %q is not a finite number", ErrInvalidRequest, name, v)
	}
	return &f, nil
}

func finite(f *float64) bool {
	return f == nil || (!math.IsNaN(*f) && !math.IsInf(*f, 0))
}
