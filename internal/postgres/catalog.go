package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calliehq/bramble/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that CatalogStore implements domain.CatalogStore.
var _ domain.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore creates a new PostgreSQL-backed catalog store.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

const productColumns = `id, name, slug, sku, price::text, active, created_at, updated_at`

// GetProduct returns a single product by ID.
func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get", "failed to get product")
	}
	return product, nil
}

// GetActiveProducts returns the active products among the given IDs,
// keyed by ID. Missing or inactive IDs are absent from the result.
func (s *CatalogStore) GetActiveProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	products := make(map[int64]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND active`, ids)
	if err != nil {
		return nil, domain.Internal(err, "catalog.get_active", "failed to query products")
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Internal(err, "catalog.get_active", "failed to scan product")
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.get_active", "failed to read products")
	}

	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p         domain.Product
		priceText string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &priceText, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	price, err := decimalFromText(priceText)
	if err != nil {
		return nil, err
	}
	p.Price = price

	return &p, nil
}
