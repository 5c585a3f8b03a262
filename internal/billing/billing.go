package billing

import (
	"context"
	"time"
)

// Provider defines the interface for payment processing.
// Implementations can use Stripe, PayPal, Square, etc.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge.
	// Returns the intent with client_secret for frontend confirmation.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	// Used to verify payment status before creating an order.
	GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error)

	// UpdatePaymentIntent updates a payment intent before confirmation.
	// Used to stage checkout metadata on the intent so async webhook
	// delivery can rebuild the order without any session state.
	UpdatePaymentIntent(ctx context.Context, params UpdatePaymentIntentParams) (*PaymentIntent, error)

	// CancelPaymentIntent cancels a payment intent that hasn't been confirmed.
	// Used to clean up abandoned checkouts.
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) error

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountCents is the amount in smallest currency unit (pence for GBP)
	AmountCents int64

	// Currency code (ISO 4217) - e.g., "gbp", "usd"
	Currency string

	// Description appears on customer's statement and in Stripe dashboard
	Description string

	// Metadata for filtering and reporting (always include session_token)
	Metadata map[string]string

	// IdempotencyKey prevents duplicate payment intents.
	// Typically the session token plus a checkout attempt counter.
	IdempotencyKey string

	// ReceiptEmail is where the provider sends payment receipts
	ReceiptEmail string
}

// PaymentIntent represents a payment intent.
type PaymentIntent struct {
	// ID is the provider payment intent ID (pi_...)
	ID string

	// ClientSecret is used by Stripe.js on frontend to confirm payment
	ClientSecret string

	// AmountCents is the amount in smallest currency unit
	AmountCents int64

	// Currency code
	Currency string

	// Status: requires_payment_method, requires_confirmation, succeeded, etc.
	Status string

	// Metadata passed during creation or staged before confirmation
	Metadata map[string]string

	// CreatedAt is when payment intent was created
	CreatedAt time.Time

	// LastPaymentError contains details if payment failed
	LastPaymentError *PaymentError

	// ReceiptEmail is the email where the provider sends receipts
	ReceiptEmail string
}

// Succeeded reports whether the payment has completed.
func (pi *PaymentIntent) Succeeded() bool {
	return pi.Status == "succeeded"
}

// PaymentError contains details about a failed payment attempt.
type PaymentError struct {
	Code        string // Provider error code
	Message     string // Human-readable message
	DeclineCode string // Reason card was declined (if applicable)
}

// GetPaymentIntentParams contains parameters for retrieving a payment intent.
type GetPaymentIntentParams struct {
	// PaymentIntentID is the provider payment intent ID
	PaymentIntentID string

	// Expand specifies related objects to include in response
	// Example: []string{"latest_charge"}
	Expand []string
}

// UpdatePaymentIntentParams contains parameters for updating a payment intent.
type UpdatePaymentIntentParams struct {
	// PaymentIntentID is the provider payment intent ID
	PaymentIntentID string

	// AmountCents updates the amount (must be before confirmation).
	// Zero leaves the amount unchanged.
	AmountCents int64

	// Metadata updates or adds metadata fields
	Metadata map[string]string

	// Description updates the description
	Description string
}
