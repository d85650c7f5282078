package domain

import "time"

// CartLine is one (product, quantity) pair within a cart. A cart never
// holds two lines for the same product; repeated adds increment quantity.
type CartLine struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at,omitzero"`
}

// CartViewLine is a cart line joined with the catalog's current name and
// price. Prices are never frozen at add time; the view floats with the
// catalog until checkout.
type CartViewLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// CartView is the caller-facing cart: resolvable lines plus their total.
// Lines whose product no longer exists are excluded, not zero-priced;
// Skipped counts how many were dropped.
type CartView struct {
	Lines   []CartViewLine `json:"lines"`
	Total   float64        `json:"total"`
	Skipped int            `json:"skipped,omitempty"`
}
