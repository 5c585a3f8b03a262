package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a purchasable catalog item. Prices are in major currency
// units (pounds, not pence).
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"-"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// CatalogStore reads products for bag summarization and order
// materialization.
type CatalogStore interface {
	// GetProduct returns a single product by ID.
	// Returns ErrProductNotFound if the product does not exist.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// GetActiveProducts returns the active products among the given IDs,
	// keyed by ID. IDs that do not exist or are inactive are simply
	// absent from the result; this is not an error.
	GetActiveProducts(ctx context.Context, ids []int64) (map[int64]*Product, error)
}

// Pre-defined catalog errors.
var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
)
