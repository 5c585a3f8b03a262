package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calliehq/bramble/internal/domain"
)

// SessionStore implements domain.SessionStore using PostgreSQL.
// The bag and cached checkout form live in JSONB columns keyed by the
// opaque cookie token.
type SessionStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// Compile-time check that SessionStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new PostgreSQL-backed session store.
// Sessions expire after ttl of inactivity from creation.
func NewSessionStore(pool *pgxpool.Pool, ttl time.Duration) *SessionStore {
	if ttl == 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &SessionStore{pool: pool, ttl: ttl}
}

const sessionColumns = `id, token, bag, checkout, profile_id, created_at, expires_at`

// GetOrCreate returns the session for a cookie token, creating a fresh
// one when the token is empty, unknown, or expired.
func (s *SessionStore) GetOrCreate(ctx context.Context, token string) (*domain.Session, error) {
	if token != "" {
		session, err := s.Get(ctx, token)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}

	return s.create(ctx)
}

// Get returns the session for a token.
func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1 AND expires_at > now()`, token)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.Internal(err, "session.get", "failed to get session")
	}
	return session, nil
}

// SaveBag replaces the session's bag.
func (s *SessionStore) SaveBag(ctx context.Context, token string, bag domain.Bag) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET bag = $2 WHERE token = $1`, token, bag.JSON())
	if err != nil {
		return domain.Internal(err, "session.save_bag", "failed to save bag")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// SaveCheckout caches the shipping form on the session.
func (s *SessionStore) SaveCheckout(ctx context.Context, token string, data *domain.CheckoutData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return domain.Internal(err, "session.save_checkout", "failed to serialize checkout data")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET checkout = $2 WHERE token = $1`, token, payload)
	if err != nil {
		return domain.Internal(err, "session.save_checkout", "failed to save checkout data")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AttachProfile links a profile to the session.
func (s *SessionStore) AttachProfile(ctx context.Context, token string, profileID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET profile_id = $2 WHERE token = $1`, token, profileID)
	if err != nil {
		return domain.Internal(err, "session.attach_profile", "failed to attach profile")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ClearCheckoutState empties the bag and drops the cached shipping form
// in one update.
func (s *SessionStore) ClearCheckoutState(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET bag = '{}'::jsonb, checkout = NULL WHERE token = $1`, token)
	if err != nil {
		return domain.Internal(err, "session.clear", "failed to clear checkout state")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, domain.Internal(err, "session.delete_expired", "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

func (s *SessionStore) create(ctx context.Context) (*domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, domain.Internal(err, "session.create", "failed to generate token")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (token, bag, expires_at)
		VALUES ($1, '{}'::jsonb, now() + $2)
		RETURNING `+sessionColumns,
		token, s.ttl)

	session, err := scanSession(row)
	if err != nil {
		return nil, domain.Internal(err, "session.create", "failed to create session")
	}
	return session, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		sess     domain.Session
		bagJSON  []byte
		checkout []byte
	)
	if err := row.Scan(&sess.ID, &sess.Token, &bagJSON, &checkout,
		&sess.ProfileID, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		return nil, err
	}

	sess.Bag = domain.ParseBag(bagJSON)

	if len(checkout) > 0 {
		var data domain.CheckoutData
		if err := json.Unmarshal(checkout, &data); err == nil {
			sess.Checkout = &data
		}
	}

	return &sess, nil
}
