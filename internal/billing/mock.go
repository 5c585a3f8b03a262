package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates successful payment flows without calling the Stripe API.
type MockProvider struct {
	// CreatePaymentIntentFunc allows customizing payment intent creation behavior
	CreatePaymentIntentFunc func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntentFunc allows customizing payment intent retrieval behavior
	GetPaymentIntentFunc func(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error)

	// UpdatePaymentIntentFunc allows customizing payment intent update behavior
	UpdatePaymentIntentFunc func(ctx context.Context, params UpdatePaymentIntentParams) (*PaymentIntent, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// PaymentIntents stores created payment intents for retrieval
	PaymentIntents map[string]*PaymentIntent

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		PaymentIntents: make(map[string]*PaymentIntent),
		CallLog:        []string{},
	}
}

// CreatePaymentIntent creates a mock payment intent.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePaymentIntent(%d, %s)", params.AmountCents, params.Currency))

	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, params)
	}

	// Default mock behavior: create successful payment intent
	metadata := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	pi := &PaymentIntent{
		ID:           "pi_" + uuid.New().String(),
		ClientSecret: "pi_" + uuid.New().String() + "_secret_" + uuid.New().String(),
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     metadata,
		CreatedAt:    time.Now(),
		ReceiptEmail: params.ReceiptEmail,
	}

	m.PaymentIntents[pi.ID] = pi
	return pi, nil
}

// GetPaymentIntent retrieves a mock payment intent.
func (m *MockProvider) GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetPaymentIntent(%s)", params.PaymentIntentID))

	if m.GetPaymentIntentFunc != nil {
		return m.GetPaymentIntentFunc(ctx, params)
	}

	// Default mock behavior: return stored payment intent
	pi, exists := m.PaymentIntents[params.PaymentIntentID]
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}

	return pi, nil
}

// UpdatePaymentIntent updates a mock payment intent.
func (m *MockProvider) UpdatePaymentIntent(ctx context.Context, params UpdatePaymentIntentParams) (*PaymentIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("UpdatePaymentIntent(%s, %d)", params.PaymentIntentID, params.AmountCents))

	if m.UpdatePaymentIntentFunc != nil {
		return m.UpdatePaymentIntentFunc(ctx, params)
	}

	pi, exists := m.PaymentIntents[params.PaymentIntentID]
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}

	if params.AmountCents > 0 {
		pi.AmountCents = params.AmountCents
	}
	if params.Metadata != nil {
		if pi.Metadata == nil {
			pi.Metadata = make(map[string]string)
		}
		for k, v := range params.Metadata {
			pi.Metadata[k] = v
		}
	}

	return pi, nil
}

// CancelPaymentIntent cancels a mock payment intent.
func (m *MockProvider) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelPaymentIntent(%s)", paymentIntentID))

	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}

	pi.Status = "canceled"
	return nil
}

// VerifyWebhookSignature verifies a mock webhook signature.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}

	// Default mock behavior: always verify successfully
	return nil
}

// SimulateSucceededPayment updates a payment intent to succeeded status.
// Used in tests to simulate successful payment confirmation.
func (m *MockProvider) SimulateSucceededPayment(paymentIntentID string) error {
	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}

	pi.Status = "succeeded"
	return nil
}

// SimulateFailedPayment updates a payment intent to failed status.
// Used in tests to simulate payment failures.
func (m *MockProvider) SimulateFailedPayment(paymentIntentID string, errorCode string, errorMessage string) error {
	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}

	pi.Status = "requires_payment_method"
	pi.LastPaymentError = &PaymentError{
		Code:    errorCode,
		Message: errorMessage,
	}
	return nil
}
