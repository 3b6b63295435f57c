package enums

import (
	"fmt"
	"strings"
)

// SortKey selects the ordering applied to a product listing.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
	SortName      SortKey = "name"
)

var validSortKeys = []SortKey{
	SortFeatured,
	SortPriceLow,
	SortPriceHigh,
	SortRating,
	SortNewest,
	SortName,
}

// String implements fmt.Stringer.
func (s SortKey) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SortKey.
func (s SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSortKey converts raw input into a SortKey. Empty input maps to SortFeatured.
func ParseSortKey(value string) (SortKey, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return SortFeatured, nil
	}
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}
