// Package filter turns a product collection into the filtered, sorted view shown by the
// catalog. Every function is pure and leaves its input untouched.
package filter

import (
	"sort"
	"strings"

	"github.com/angelmondragon/storefront/pkg/models"
)

// Apply returns the products satisfying every active predicate of c, in input order.
func Apply(products []models.Product, c Criteria) []models.Product {
	var categories map[string]struct{}
	if len(c.Categories) > 0 {
		categories = make(map[string]struct{}, len(c.Categories))
		for _, category := range c.Categories {
			categories[category] = struct{}{}
		}
	}
	query := strings.ToLower(strings.TrimSpace(c.Query))

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if categories != nil {
			if _, ok := categories[p.Category]; !ok {
				continue
			}
		}
		if !c.inPriceRange(p.Price) {
			continue
		}
		if c.MinRating > 0 && p.Rating < c.MinRating {
			continue
		}
		if c.InStockOnly && !p.InStock {
			continue
		}
		if query != "" && !matchesLowered(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MatchesQuery reports a case-insensitive substring match on title, description or category.
// An empty query matches everything.
func MatchesQuery(p models.Product, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return matchesLowered(p, query)
}

func matchesLowered(p models.Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

// Categories returns the distinct categories in first-seen order.
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{}, len(products))
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// Featured returns the top limit products by rating. Equal ratings keep input order.
func Featured(products []models.Product, limit int) []models.Product {
	sorted := make([]models.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})
	if limit >= 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}
