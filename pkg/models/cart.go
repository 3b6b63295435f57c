package models

// CartLineItem pairs a product with the desired quantity. Serialized exactly as the
// browser cart persisted it so existing saved carts keep loading.
type CartLineItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CartLine is a line item joined with its resolved product.
type CartLine struct {
	CartLineItem
	Product   Product `json:"product"`
	LineTotal float64 `json:"lineTotal"`
}
