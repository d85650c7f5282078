package catalog

import (
	"context"
	"time"
)

// Product is the catalog's view of a sellable item.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Catalog resolves product identifiers to current name/price/stock.
// Cart code consumes this interface; it never owns catalog storage.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, page Page) ([]*Product, int, error)
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// sortFields is the whitelist of columns a caller may sort listings by.
var sortFields = map[string]string{
	"id":    "id",
	"name":  "name",
	"price": "price",
}

// Page describes a bounded, sorted slice of the catalog.
type Page struct {
	Limit  int
	Offset int
	Sort   string
	Desc   bool
}

// normalize clamps limits and falls back to the id sort for unknown
// fields rather than erroring, matching the listing endpoints' tolerance
// for junk query parameters.
func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPerPage
	}
	if p.Limit > maxPerPage {
		p.Limit = maxPerPage
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if _, ok := sortFields[p.Sort]; !ok {
		p.Sort = "id"
	}
	return p
}
