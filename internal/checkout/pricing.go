package checkout

import (
	"fmt"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/shopspring/decimal"
)

// Pricing holds the shipping and tax rules applied to a cart subtotal.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPricing is free shipping from $50, otherwise $9.99, and 8% tax.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(50),
		ShippingFee:           decimal.RequireFromString("9.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// PricingFromConfig parses the checkout section of the config.
func PricingFromConfig(cfg config.CheckoutConfig) (Pricing, error) {
	var p Pricing
	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"free shipping threshold", cfg.FreeShippingThreshold, &p.FreeShippingThreshold},
		{"shipping fee", cfg.ShippingFee, &p.ShippingFee},
		{"tax rate", cfg.TaxRate, &p.TaxRate},
	} {
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return Pricing{}, fmt.Errorf("parse %s %q: %w", field.name, field.raw, err)
		}
		if v.IsNegative() {
			return Pricing{}, fmt.Errorf("%s must not be negative", field.name)
		}
		*field.dst = v
	}
	return p, nil
}

// Quote is the pricing summary shown on the review step and stored on the order.
type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Quote prices a subtotal. Tax rounds half-up to cents.
func (p Pricing) Quote(subtotal decimal.Decimal) Quote {
	subtotal = subtotal.Round(2)
	shipping := p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax)
	return Quote{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}
