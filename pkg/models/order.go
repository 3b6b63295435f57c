package models

import (
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

// PaymentSummary is the redacted payment data kept on an order. Full card numbers and
// CVVs never reach this struct.
type PaymentSummary struct {
	Type     string `json:"type"`
	Last4    string `json:"last4"`
	CardName string `json:"cardName"`
}

// Order is the immutable snapshot created at checkout.
type Order struct {
	ID              int64                 `json:"id"`
	Items           []CartLineItem        `json:"items"`
	Subtotal        float64               `json:"subtotal"`
	Shipping        float64               `json:"shipping"`
	Tax             float64               `json:"tax"`
	Total           float64               `json:"total"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentSummary        `json:"paymentMethod"`
	Notes           string                `json:"notes,omitempty"`
	OrderDate       time.Time             `json:"orderDate"`
	TrackingNumber  string                `json:"trackingNumber"`
	Status          enums.OrderStatus     `json:"status"`
}
