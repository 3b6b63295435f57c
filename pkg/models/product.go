package models

import "math"

// Product is the read-only catalog entity decoded from a remote product record.
type Product struct {
	ID             int64             `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	OriginalPrice  *float64          `json:"originalPrice,omitempty"`
	Category       string            `json:"category"`
	Subcategory    string            `json:"subcategory,omitempty"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	InStock        bool              `json:"inStock"`
	StockCount     int               `json:"stockCount"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Images         []string          `json:"images"`
}

// DiscountPercent returns the rounded percentage off OriginalPrice, or 0 when there is no markdown.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price || *p.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round((*p.OriginalPrice - p.Price) / *p.OriginalPrice * 100))
}

// PrimaryImage returns the first image URL, if any.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Purchasable reports whether at least one unit can be added to a cart.
func (p *Product) Purchasable() bool {
	return p != nil && p.InStock && p.StockCount > 0
}
