package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calliehq/bramble/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
//
// The orders table carries a unique constraint on payment_ref; Create
// surfaces a conflict on it as domain.ErrDuplicatePaymentRef, which is
// the signal racing settlement paths use to resolve their race.
type OrderStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that OrderStore implements domain.OrderStore.
var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, order_number, payment_ref, status,
	full_name, email, phone, address1, address2, city, county, postcode, country,
	subtotal::text, delivery_fee::text, grand_total::text,
	original_bag, profile_id, created_at, updated_at`

// Create inserts the order and its line items in one transaction.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "order.create", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, payment_ref, status,
			full_name, email, phone, address1, address2, city, county, postcode, country,
			subtotal, delivery_fee, grand_total, original_bag, profile_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.PaymentRef, order.Status,
		order.FullName, order.Email, order.Phone, order.Address1, order.Address2,
		order.City, order.County, order.Postcode, order.Country,
		order.Subtotal.String(), order.DeliveryFee.String(), order.GrandTotal.String(),
		order.OriginalBag, order.ProfileID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_payment_ref_key") {
			return domain.ErrDuplicatePaymentRef
		}
		return domain.Internal(err, "order.create", "failed to insert order")
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_line_items (order_id, product_id, name, sku, price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Name, items[i].SKU,
			items[i].Price.String(), items[i].Quantity, items[i].LineTotal.String(),
		).Scan(&items[i].ID)
		if err != nil {
			return domain.Internal(err, "order.create", "failed to insert line item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, "orders_payment_ref_key") {
			return domain.ErrDuplicatePaymentRef
		}
		return domain.Internal(err, "order.create", "failed to commit order")
	}

	return nil
}

// GetByPaymentRef returns the order for a payment reference.
func (s *OrderStore) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1`, paymentRef)
	return s.scanOrder(row, "order.get_by_payment_ref")
}

// GetByNumber returns the order for a public order number.
func (s *OrderStore) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	return s.scanOrder(row, "order.get_by_number")
}

// LineItems returns the line items for an order, ordered by product ID.
func (s *OrderStore) LineItems(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, name, sku, price::text, quantity, line_total::text
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY product_id`, orderID)
	if err != nil {
		return nil, domain.Internal(err, "order.line_items", "failed to query line items")
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var (
			item          domain.OrderLineItem
			priceText     string
			lineTotalText string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name,
			&item.SKU, &priceText, &item.Quantity, &lineTotalText); err != nil {
			return nil, domain.Internal(err, "order.line_items", "failed to scan line item")
		}
		if item.Price, err = decimalFromText(priceText); err != nil {
			return nil, domain.Internal(err, "order.line_items", "invalid line item price")
		}
		if item.LineTotal, err = decimalFromText(lineTotalText); err != nil {
			return nil, domain.Internal(err, "order.line_items", "invalid line item total")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.line_items", "failed to read line items")
	}

	return items, nil
}

// ListByProfile returns a profile's orders, newest first.
func (s *OrderStore) ListByProfile(ctx context.Context, profileID int64) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE profile_id = $1 ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, domain.Internal(err, "order.list_by_profile", "failed to query orders")
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, domain.Internal(err, "order.list_by_profile", "failed to scan order")
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list_by_profile", "failed to read orders")
	}

	return orders, nil
}

func (s *OrderStore) scanOrder(row pgx.Row, op string) (*domain.Order, error) {
	order, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to scan order")
	}
	return order, nil
}

func scanOrderRow(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		subtotalText string
		deliveryText string
		grandText    string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PaymentRef, &o.Status,
		&o.FullName, &o.Email, &o.Phone, &o.Address1, &o.Address2,
		&o.City, &o.County, &o.Postcode, &o.Country,
		&subtotalText, &deliveryText, &grandText,
		&o.OriginalBag, &o.ProfileID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if o.Subtotal, err = decimalFromText(subtotalText); err != nil {
		return nil, err
	}
	if o.DeliveryFee, err = decimalFromText(deliveryText); err != nil {
		return nil, err
	}
	if o.GrandTotal, err = decimalFromText(grandText); err != nil {
		return nil, err
	}

	return &o, nil
}
