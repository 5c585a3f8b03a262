package domain

import (
	"context"
	"time"
)

// CheckoutData is the shipping form a shopper submitted before being
// sent to the payment provider. It is cached on the session so the
// browser-return path can rebuild an order if the webhook never lands.
type CheckoutData struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	SaveInfo bool   `json:"save_info"`
}

// Session is server-side shopper state keyed by an opaque cookie token.
type Session struct {
	ID        int64
	Token     string
	Bag       Bag
	Checkout  *CheckoutData
	ProfileID *int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore persists shopper sessions.
type SessionStore interface {
	// GetOrCreate returns the session for a cookie token, creating a
	// fresh one when the token is empty, unknown, or expired. The
	// returned session always has a valid token.
	GetOrCreate(ctx context.Context, token string) (*Session, error)

	// Get returns the session for a token.
	// Returns ErrSessionNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (*Session, error)

	// SaveBag replaces the session's bag.
	SaveBag(ctx context.Context, token string, bag Bag) error

	// SaveCheckout caches the shipping form on the session.
	SaveCheckout(ctx context.Context, token string, data *CheckoutData) error

	// AttachProfile links a profile to the session.
	AttachProfile(ctx context.Context, token string, profileID int64) error

	// ClearCheckoutState empties the bag and drops the cached shipping
	// form in one update. Called only once an order is known to exist.
	ClearCheckoutState(ctx context.Context, token string) error

	// DeleteExpired removes sessions past their expiry. Returns the
	// number of rows deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Pre-defined session errors.
var (
	ErrSessionNotFound = &Error{Code: ENOTFOUND, Message: "Session not found"}
)
