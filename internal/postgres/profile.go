package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calliehq/bramble/internal/domain"
)

// ProfileStore implements domain.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that ProfileStore implements domain.ProfileStore.
var _ domain.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore creates a new PostgreSQL-backed profile store.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, email, full_name, phone, address1, address2,
	city, county, postcode, country, created_at, updated_at`

// Get returns a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row, "profile.get")
}

// GetByEmail returns a profile by email.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	return scanProfile(row, "profile.get_by_email")
}

// SaveShipping updates a profile's default shipping details.
func (s *ProfileStore) SaveShipping(ctx context.Context, id int64, data *domain.CheckoutData) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET
			full_name = $2, phone = $3, address1 = $4, address2 = $5,
			city = $6, county = $7, postcode = $8, country = $9,
			updated_at = now()
		WHERE id = $1`,
		id, data.FullName, data.Phone, data.Address1, data.Address2,
		data.City, data.County, data.Postcode, data.Country)
	if err != nil {
		return domain.Internal(err, "profile.save_shipping", "failed to save shipping details")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func scanProfile(row pgx.Row, op string) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Address1, &p.Address2,
		&p.City, &p.County, &p.Postcode, &p.Country, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, domain.Internal(err, op, "failed to scan profile")
	}
	return &p, nil
}
