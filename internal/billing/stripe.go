package billing

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using the Stripe Go SDK.
type StripeProvider struct {
	config *StripeConfig
}

// NewStripeProvider creates a new Stripe billing provider.
// The API key is installed globally for the SDK.
func NewStripeProvider(config *StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	stripe.Key = config.APIKey

	return &StripeProvider{config: config}, nil
}

// CreatePaymentIntent creates a Stripe payment intent.
func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	if params.AmountCents < 30 {
		return nil, ErrAmountTooSmall
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.Context = ctx

	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	if params.ReceiptEmail != "" {
		piParams.ReceiptEmail = stripe.String(params.ReceiptEmail)
	}
	for key, value := range params.Metadata {
		piParams.AddMetadata(key, value)
	}
	if params.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return fromStripePaymentIntent(pi), nil
}

// GetPaymentIntent retrieves a Stripe payment intent.
func (s *StripeProvider) GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error) {
	piParams := &stripe.PaymentIntentParams{}
	piParams.Context = ctx
	for _, field := range params.Expand {
		piParams.AddExpand(field)
	}

	pi, err := paymentintent.Get(params.PaymentIntentID, piParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return fromStripePaymentIntent(pi), nil
}

// UpdatePaymentIntent updates a Stripe payment intent before confirmation.
func (s *StripeProvider) UpdatePaymentIntent(ctx context.Context, params UpdatePaymentIntentParams) (*PaymentIntent, error) {
	piParams := &stripe.PaymentIntentParams{}
	piParams.Context = ctx

	if params.AmountCents > 0 {
		piParams.Amount = stripe.Int64(params.AmountCents)
	}
	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	for key, value := range params.Metadata {
		piParams.AddMetadata(key, value)
	}

	pi, err := paymentintent.Update(params.PaymentIntentID, piParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return fromStripePaymentIntent(pi), nil
}

// CancelPaymentIntent cancels an unconfirmed Stripe payment intent.
func (s *StripeProvider) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(paymentIntentID, params); err != nil {
		return wrapStripeError(err)
	}
	return nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if _, err := webhook.ConstructEvent(payload, signature, secret); err != nil {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// fromStripePaymentIntent converts the SDK type to the provider-neutral type.
func fromStripePaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0),
		ReceiptEmail: pi.ReceiptEmail,
	}

	if pi.LastPaymentError != nil {
		out.LastPaymentError = &PaymentError{
			Code:        string(pi.LastPaymentError.Code),
			Message:     pi.LastPaymentError.Msg,
			DeclineCode: string(pi.LastPaymentError.DeclineCode),
		}
	}

	return out
}

// wrapStripeError converts SDK errors into StripeError, mapping
// missing-resource errors to ErrPaymentIntentNotFound.
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &StripeError{Message: err.Error(), OriginalError: err}
	}

	if stripeErr.Code == stripe.ErrorCodeResourceMissing {
		return ErrPaymentIntentNotFound
	}

	return &StripeError{
		Message:       stripeErr.Msg,
		Code:          string(stripeErr.Code),
		DeclineCode:   string(stripeErr.DeclineCode),
		RequestID:     stripeErr.RequestID,
		OriginalError: err,
	}
}
