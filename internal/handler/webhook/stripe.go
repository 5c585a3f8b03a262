// Package webhook ingests payment provider events. The webhook is the
// authoritative settlement path: it creates orders from succeeded
// payments using only the state staged on the payment intent, never
// the shopper's session.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/calliehq/bramble/internal/billing"
	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/handler"
	"github.com/calliehq/bramble/internal/service"
	"github.com/calliehq/bramble/internal/telemetry"
)

// OrderMaterializer turns a paid bag into a durable order.
type OrderMaterializer interface {
	Materialize(ctx context.Context, params service.MaterializeParams) (*domain.Order, bool, error)
}

// StripeHandler handles Stripe webhook events.
type StripeHandler struct {
	provider      billing.Provider
	orders        OrderMaterializer
	webhookSecret string
	metrics       *telemetry.Metrics
	logger        *slog.Logger
}

// NewStripeHandler creates a Stripe webhook handler.
func NewStripeHandler(
	provider billing.Provider,
	orders OrderMaterializer,
	webhookSecret string,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *StripeHandler {
	return &StripeHandler{
		provider:      provider,
		orders:        orders,
		webhookSecret: webhookSecret,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleWebhook processes incoming Stripe webhook events.
//
// Only signature and payload verification failures produce non-2xx
// responses. Once an event is verified it is always acknowledged with
// 200, even if processing it fails: Stripe redelivers on non-2xx, and
// redelivery cannot fix a processing failure, only repeat it. The
// materializer's idempotency makes redelivery of succeeded payments
// safe regardless.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Method not allowed"))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook payload", "error", err)
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Warn("webhook request missing signature header")
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Missing signature"))
		return
	}

	if err := h.provider.VerifyWebhookSignature(payload, signature, h.webhookSecret); err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		handler.ErrorResponse(w, r, domain.Unauthorized("webhook.stripe", "Invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to parse webhook event", "error", err)
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Invalid JSON"))
		return
	}

	h.logger.Info("webhook event received", "type", event.Type, "event_id", event.ID)
	h.metrics.RecordWebhookReceived(string(event.Type))
	defer func() {
		h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
	}()

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(r.Context(), event)

	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(event)

	case "payment_intent.created", "payment_intent.canceled":
		// Monitoring only.
		h.logger.Debug("payment intent lifecycle event", "type", event.Type, "event_id", event.ID)

	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type, "event_id", event.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received": true}`))
}

// handlePaymentIntentSucceeded materializes an order from a succeeded
// payment. The bag and shipping details come from the intent metadata
// staged before confirmation; totals are recomputed from the catalog,
// never read back from the metadata.
func (h *StripeHandler) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		h.logger.Error("failed to parse payment intent from webhook",
			"event_id", event.ID,
			"error", err)
		h.metrics.RecordWebhookFailed("bad_payload")
		return
	}

	h.logger.Info("payment succeeded",
		"payment_ref", pi.ID,
		"amount", pi.Amount,
		"currency", pi.Currency)

	staged, ok := checkout.RecoverMetadata(pi.Metadata)
	if !ok {
		// The metadata attach before confirmation never landed. The
		// browser-return path can still settle this from the session.
		h.logger.Warn("no staged bag in payment intent metadata",
			"payment_ref", pi.ID)
		h.metrics.RecordWebhookFailed("missing_metadata")
		return
	}

	order, created, err := h.orders.Materialize(ctx, service.MaterializeParams{
		PaymentRef: pi.ID,
		Bag:        staged.Bag,
		Shipping:   staged.Data,
		ProfileID:  staged.ProfileID,
		Source:     service.SourceWebhook,
	})
	if err != nil {
		h.logger.Error("failed to materialize order from webhook",
			"payment_ref", pi.ID,
			"error", err)
		h.metrics.RecordWebhookFailed("materialize_failed")
		return
	}

	if !created {
		h.logger.Info("order already settled for payment",
			"payment_ref", pi.ID,
			"order_number", order.OrderNumber)
		return
	}

	h.logger.Info("order created from webhook",
		"payment_ref", pi.ID,
		"order_number", order.OrderNumber,
		"grand_total", order.GrandTotal)
}

// handlePaymentIntentFailed records failed payment attempts for
// visibility. No order state exists yet, so there is nothing to undo.
func (h *StripeHandler) handlePaymentIntentFailed(event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		h.logger.Error("failed to parse payment intent from webhook",
			"event_id", event.ID,
			"error", err)
		h.metrics.RecordWebhookFailed("bad_payload")
		return
	}

	reason := "unknown"
	if pi.LastPaymentError != nil {
		reason = string(pi.LastPaymentError.Code)
	}

	h.logger.Warn("payment failed",
		"payment_ref", pi.ID,
		"reason", reason)
	h.metrics.RecordPaymentOutcome(false)
}
