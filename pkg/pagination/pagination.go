package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 24
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Offset int
}

// Page describes the slice of a listing that was returned.
type Page struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps both fields into range.
func (p Params) Normalize() Params {
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// PageFor builds the response metadata for a page of returned rows out of total.
func (p Params) PageFor(returned, total int) Page {
	return Page{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: p.Offset+returned < total,
	}
}

// FromQuery reads "limit" and "offset". Missing values fall back to defaults.
func FromQuery(q url.Values) (Params, error) {
	var p Params
	for _, field := range []struct {
		key string
		dst *int
	}{{"limit", &p.Limit}, {"offset", &p.Offset}} {
		raw := strings.TrimSpace(q.Get(field.key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return Params{}, fmt.Errorf("%s must be a non-negative integer", field.key)
		}
		*field.dst = v
	}
	return p.Normalize(), nil
}
