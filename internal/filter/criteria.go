package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default inclusive price bounds of the catalog price slider.
const (
	DefaultPriceMin = 0
	DefaultPriceMax = 1000
)

// Criteria is the set of catalog filters currently selected by the shopper. The zero
// value restricts nothing: a PriceMax of 0 or less means no upper price bound.
type Criteria struct {
	Categories  []string `json:"categories"`
	PriceMin    float64  `json:"priceMin"`
	PriceMax    float64  `json:"priceMax"`
	MinRating   float64  `json:"minRating"`
	InStockOnly bool     `json:"inStockOnly"`
	Query       string   `json:"query"`
}

// DefaultCriteria selects everything priced within the default range.
func DefaultCriteria() Criteria {
	return Criteria{PriceMin: DefaultPriceMin, PriceMax: DefaultPriceMax}
}

// Chip is one removable "active filter" badge.
type Chip struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Label string `json:"label"`
}

// Chip kinds.
const (
	ChipCategory = "category"
	ChipPrice    = "price"
	ChipRating   = "rating"
	ChipStock    = "stock"
)

// Active lists the filters that narrow the catalog. The text query is not a chip.
func (c Criteria) Active() []Chip {
	var chips []Chip
	for _, category := range c.Categories {
		chips = append(chips, Chip{Kind: ChipCategory, Value: category, Label: category})
	}
	switch {
	case c.boundedMax() && (c.PriceMin > DefaultPriceMin || c.PriceMax < DefaultPriceMax):
		chips = append(chips, Chip{
			Kind:  ChipPrice,
			Label: fmt.Sprintf("$%s - $%s", formatNumber(c.PriceMin), formatNumber(c.PriceMax)),
		})
	case c.PriceMin > DefaultPriceMin:
		chips = append(chips, Chip{Kind: ChipPrice, Label: "$" + formatNumber(c.PriceMin) + "+"})
	}
	if c.MinRating > 0 {
		chips = append(chips, Chip{Kind: ChipRating, Label: formatNumber(c.MinRating) + "+ stars"})
	}
	if c.InStockOnly {
		chips = append(chips, Chip{Kind: ChipStock, Label: "In Stock Only"})
	}
	return chips
}

// HasActive reports whether any chip or text query is set.
func (c Criteria) HasActive() bool {
	return len(c.Active()) > 0 || strings.TrimSpace(c.Query) != ""
}

// FromQuery reads category, search, minPrice, maxPrice, rating and inStock.
// Missing parameters keep their defaults; malformed numbers are reported.
func FromQuery(q url.Values) (Criteria, error) {
	c := DefaultCriteria()

	for _, raw := range q["category"] {
		for _, category := range strings.Split(raw, ",") {
			if category = strings.TrimSpace(category); category != "" {
				c.Categories = append(c.Categories, category)
			}
		}
	}
	c.Query = strings.TrimSpace(q.Get("search"))

	var err error
	if c.PriceMin, err = parseNumber(q, "minPrice", DefaultPriceMin); err != nil {
		return Criteria{}, err
	}
	if c.PriceMax, err = parseNumber(q, "maxPrice", DefaultPriceMax); err != nil {
		return Criteria{}, err
	}
	if c.MinRating, err = parseNumber(q, "rating", 0); err != nil {
		return Criteria{}, err
	}
	if c.boundedMax() && c.PriceMin > c.PriceMax {
		return Criteria{}, fmt.Errorf("minPrice must not exceed maxPrice")
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return Criteria{}, fmt.Errorf("rating must be between 0 and 5")
	}

	if raw := strings.TrimSpace(q.Get("inStock")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("inStock must be a boolean")
		}
		c.InStockOnly = b
	}
	return c, nil
}

// Values renders c back into URL parameters, omitting defaults.
func (c Criteria) Values() url.Values {
	q := url.Values{}
	for _, category := range c.Categories {
		q.Add("category", category)
	}
	if c.Query != "" {
		q.Set("search", c.Query)
	}
	if c.PriceMin > DefaultPriceMin {
		q.Set("minPrice", formatNumber(c.PriceMin))
	}
	if c.boundedMax() && c.PriceMax < DefaultPriceMax {
		q.Set("maxPrice", formatNumber(c.PriceMax))
	}
	if c.MinRating > 0 {
		q.Set("rating", formatNumber(c.MinRating))
	}
	if c.InStockOnly {
		q.Set("inStock", "true")
	}
	return q
}

func (c Criteria) boundedMax() bool { return c.PriceMax > 0 }

func (c Criteria) inPriceRange(price float64) bool {
	if price < c.PriceMin {
		return false
	}
	return !c.boundedMax() || price <= c.PriceMax
}

func parseNumber(q url.Values, key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number", key)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
