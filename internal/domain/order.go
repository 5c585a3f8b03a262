package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Order is a materialized purchase. Exactly one order exists per
// payment reference; the unique constraint on PaymentRef is what makes
// materialization idempotent under concurrent attempts.
type Order struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	PaymentRef  string `json:"-"`
	Status      string `json:"status"`

	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	GrandTotal  decimal.Decimal `json:"grand_total"`

	// OriginalBag is the JSON bag snapshot the order was settled from.
	// Kept for audit; line items are the authoritative contents.
	OriginalBag []byte `json:"-"`

	ProfileID *int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// OrderLineItem is one product line on an order. Price is the unit
// price captured at settlement time.
type OrderLineItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"-"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderStore persists orders and their line items.
type OrderStore interface {
	// Create inserts the order and its line items in one transaction.
	// Returns ErrDuplicatePaymentRef if an order already exists for
	// order.PaymentRef; the caller should re-fetch the winner.
	Create(ctx context.Context, order *Order, items []OrderLineItem) error

	// GetByPaymentRef returns the order for a payment reference.
	// Returns ErrOrderNotFound if none exists.
	GetByPaymentRef(ctx context.Context, paymentRef string) (*Order, error)

	// GetByNumber returns the order for a public order number.
	// Returns ErrOrderNotFound if none exists.
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// LineItems returns the line items for an order, ordered by product ID.
	LineItems(ctx context.Context, orderID int64) ([]OrderLineItem, error)

	// ListByProfile returns a profile's orders, newest first.
	ListByProfile(ctx context.Context, profileID int64) ([]*Order, error)
}

// Pre-defined order errors.
var (
	ErrOrderNotFound       = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrDuplicatePaymentRef = &Error{Code: ECONFLICT, Message: "Order already exists for this payment"}
)
