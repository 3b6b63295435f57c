package filter

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders product listings. Name ordering is locale aware.
type Sorter struct {
	tag language.Tag
}

// NewSorter builds a Sorter collating names for the BCP 47 tag lang.
func NewSorter(lang string) (*Sorter, error) {
	if lang == "" {
		return &Sorter{tag: language.English}, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse collation language %q: %w", lang, err)
	}
	return &Sorter{tag: tag}, nil
}

// Sort returns a new slice ordered by key. Featured and unknown keys keep input order.
func (s *Sorter) Sort(products []models.Product, key enums.SortKey) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	var less func(i, j int) bool
	switch key {
	case enums.SortPriceLow:
		less = func(i, j int) bool { return out[i].Price < out[j].Price }
	case enums.SortPriceHigh:
		less = func(i, j int) bool { return out[i].Price > out[j].Price }
	case enums.SortRating:
		less = func(i, j int) bool { return out[i].Rating > out[j].Rating }
	case enums.SortNewest:
		// ids are assigned in creation order
		less = func(i, j int) bool { return out[i].ID > out[j].ID }
	case enums.SortName:
		// collators keep scratch buffers, so each call gets its own
		col := collate.New(s.tag)
		less = func(i, j int) bool { return col.CompareString(out[i].Title, out[j].Title) < 0 }
	default:
		return out
	}
	sort.SliceStable(out, less)
	return out
}
