package domain

import (
	"context"
	"time"
)

// Profile is a returning shopper's saved details. Orders reference
// profiles so the order history page can list past purchases.
type Profile struct {
	ID    int64
	Email string

	// Default shipping details, refreshed when a shopper checks the
	// save-info box at checkout.
	FullName string
	Phone    string
	Address1 string
	Address2 string
	City     string
	County   string
	Postcode string
	Country  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileStore persists shopper profiles.
type ProfileStore interface {
	// Get returns a profile by ID.
	// Returns ErrProfileNotFound if none exists.
	Get(ctx context.Context, id int64) (*Profile, error)

	// GetByEmail returns a profile by email.
	// Returns ErrProfileNotFound if none exists.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// SaveShipping updates a profile's default shipping details.
	SaveShipping(ctx context.Context, id int64, data *CheckoutData) error
}

// Pre-defined profile errors.
var (
	ErrProfileNotFound = &Error{Code: ENOTFOUND, Message: "Profile not found"}
)
