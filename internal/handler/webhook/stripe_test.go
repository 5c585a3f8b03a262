package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehq/bramble/internal/billing"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/service"
)

type mockMaterializer struct {
	MaterializeFunc func(ctx context.Context, params service.MaterializeParams) (*domain.Order, bool, error)
	Calls           []service.MaterializeParams
}

func (m *mockMaterializer) Materialize(ctx context.Context, params service.MaterializeParams) (*domain.Order, bool, error) {
	m.Calls = append(m.Calls, params)
	if m.MaterializeFunc != nil {
		return m.MaterializeFunc(ctx, params)
	}
	return &domain.Order{
		ID:          1,
		OrderNumber: "ORD-20240101-ABCDEF",
		PaymentRef:  params.PaymentRef,
		GrandTotal:  decimal.RequireFromString("24.99"),
	}, true, nil
}

func newTestHandler(provider billing.Provider, orders OrderMaterializer) *StripeHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStripeHandler(provider, orders, "whsec_test", nil, logger)
}

func postEvent(t *testing.T, h *StripeHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

// eventJSON builds a webhook event payload with the given payment
// intent as the event object.
func eventJSON(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_test_1",
		"type": eventType,
		"data": map[string]interface{}{
			"object": object,
		},
	})
	require.NoError(t, err)
	return payload
}

func succeededIntent(metadata map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":       "pi_test_123",
		"amount":   2499,
		"currency": "gbp",
		"status":   "succeeded",
		"metadata": metadata,
	}
}

func stagedMetadata() map[string]string {
	return map[string]string{
		"bag":           `{"7":2}`,
		"full_name":     "Ada Lovelace",
		"email":         "ada@example.com",
		"address1":      "12 Analytical Way",
		"city":          "London",
		"postcode":      "EC1A 1BB",
		"country":       "GB",
		"save_info":     "true",
		"profile_id":    "42",
		"session_token": "tok_abc",
	}
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(billing.NewMockProvider(), &mockMaterializer{})

	req := httptest.NewRequest(http.MethodGet, "/webhooks/stripe", nil)
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	orders := &mockMaterializer{}
	h := newTestHandler(billing.NewMockProvider(), orders)

	rec := postEvent(t, h, eventJSON(t, "payment_intent.succeeded", succeededIntent(stagedMetadata())), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orders.Calls)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.VerifyWebhookSignatureFunc = func(payload []byte, signature, secret string) error {
		return billing.ErrInvalidWebhookSignature
	}
	orders := &mockMaterializer{}
	h := newTestHandler(provider, orders)

	rec := postEvent(t, h, eventJSON(t, "payment_intent.succeeded", succeededIntent(stagedMetadata())), "t=1,v1=bad")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, orders.Calls)
}

func TestHandleWebhook_InvalidJSON(t *testing.T) {
	orders := &mockMaterializer{}
	h := newTestHandler(billing.NewMockProvider(), orders)

	rec := postEvent(t, h, []byte(`{not json`), "t=1,v1=sig")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orders.Calls)
}

func TestHandleWebhook_IgnoredEventTypes(t *testing.T) {
	for _, eventType := range []string{
		"payment_intent.created",
		"payment_intent.canceled",
		"charge.refunded",
		"customer.created",
	} {
		t.Run(eventType, func(t *testing.T) {
			orders := &mockMaterializer{}
			h := newTestHandler(billing.NewMockProvider(), orders)

			rec := postEvent(t, h, eventJSON(t, eventType, succeededIntent(stagedMetadata())), "t=1,v1=sig")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"received": true}`, rec.Body.String())
			assert.Empty(t, orders.Calls)
		})
	}
}

func TestHandleWebhook_PaymentSucceeded(t *testing.T) {
	orders := &mockMaterializer{}
	h := newTestHandler(billing.NewMockProvider(), orders)

	rec := postEvent(t, h, eventJSON(t, "payment_intent.succeeded", succeededIntent(stagedMetadata())), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	require.Len(t, orders.Calls, 1)
	params := orders.Calls[0]
	assert.Equal(t, "pi_test_123", params.PaymentRef)
	assert.Equal(t, service.SourceWebhook, params.Source)
	assert.Equal(t, 2, params.Bag["7"])

	require.NotNil(t, params.Shipping)
	assert.Equal(t, "Ada Lovelace", params.Shipping.FullName)
	assert.Equal(t, "ada@example.com", params.Shipping.Email)
	assert.True(t, params.Shipping.SaveInfo)

	require.NotNil(t, params.ProfileID)
	assert.Equal(t, int64(42), *params.ProfileID)
}

func TestHandleWebhook_MissingMetadata(t *testing.T) {
	orders := &mockMaterializer{}
	h := newTestHandler(billing.NewMockProvider(), orders)

	// No staged bag on the intent: nothing to materialize from, but
	// the event is still acknowledged.
	rec := postEvent(t, h, eventJSON(t, "payment_intent.succeeded", succeededIntent(nil)), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	assert.Empty(t, orders.Calls)
}

func TestHandleWebhook_MaterializeFailureStillAcks(t *testing.T) {
	orders := &mockMaterializer{
		MaterializeFunc: func(ctx context.Context, params service.MaterializeParams) (*domain.Order, bool, error) {
			return nil, false, fmt.Errorf("database unavailable")
		},
	}
	h := newTestHandler(billing.NewMockProvider(), orders)

	rec := postEvent(t, h, eventJSON(t, "payment_intent.succeeded", succeededIntent(stagedMetadata())), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	assert.Len(t, orders.Calls, 1)
}

func TestHandleWebhook_IdempotentRedelivery(t *testing.T) {
	existing := &domain.Order{
		ID:          9,
		OrderNumber: "ORD-20240101-EXISTS",
		PaymentRef:  "pi_test_123",
	}
	orders := &mockMaterializer{
		MaterializeFunc: func(ctx context.Context, params service.MaterializeParams) (*domain.Order, bool, error) {
			return existing, false, nil
		},
	}
	h := newTestHandler(billing.NewMockProvider(), orders)

	payload := eventJSON(t, "payment_intent.succeeded", succeededIntent(stagedMetadata()))
	first := postEvent(t, h, payload, "t=1,v1=sig")
	second := postEvent(t, h, payload, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, orders.Calls, 2)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	orders := &mockMaterializer{}
	h := newTestHandler(billing.NewMockProvider(), orders)

	object := map[string]interface{}{
		"id":       "pi_test_123",
		"status":   "requires_payment_method",
		"currency": "gbp",
		"last_payment_error": map[string]interface{}{
			"code": "card_declined",
		},
	}
	rec := postEvent(t, h, eventJSON(t, "payment_intent.payment_failed", object), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, orders.Calls)
}
