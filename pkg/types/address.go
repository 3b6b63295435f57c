package types

import "strings"

// DefaultCountry is applied when the checkout form leaves country blank.
const DefaultCountry = "United States"

// ShippingAddress is the contact and delivery block captured at checkout.
type ShippingAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country"`
}

// Normalize trims every field and fills in the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	out := ShippingAddress{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Email:     strings.TrimSpace(a.Email),
		Phone:     strings.TrimSpace(a.Phone),
		Address:   strings.TrimSpace(a.Address),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		ZipCode:   strings.TrimSpace(a.ZipCode),
		Country:   strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

// FullName joins first and last name for display.
func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
