package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calliehq/bramble/internal/billing"
	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/telemetry"
)

// FallbackPolicy picks which bag source fallback materialization
// prefers when the webhook hasn't landed. Provider metadata is
// provider-confirmed but frozen at confirmation time; the session cache
// is fresher but may have expired or been cleared.
type FallbackPolicy string

const (
	FallbackMetadataFirst FallbackPolicy = "metadata_first"
	FallbackSessionFirst  FallbackPolicy = "session_first"
)

// ReconcileConfig bounds the coordinator's webhook wait and selects the
// fallback source policy.
type ReconcileConfig struct {
	// WebhookWaitAttempts is how many times to poll for a webhook-created
	// order before falling back.
	WebhookWaitAttempts uint64

	// WebhookWaitDelay is the fixed delay between poll attempts.
	WebhookWaitDelay time.Duration

	// Fallback picks the bag source preference for in-line materialization.
	Fallback FallbackPolicy
}

// ReconcileStatus is the terminal state of a reconciliation run that
// did not error.
type ReconcileStatus string

const (
	// ReconcileDone means an order exists for the payment and the
	// session's checkout state has been cleared.
	ReconcileDone ReconcileStatus = "done"

	// ReconcileInconclusive means payment succeeded but no usable bag
	// was available to materialize from. The webhook is trusted to
	// settle the order asynchronously; the shopper is sent to their
	// order history with an informational message.
	ReconcileInconclusive ReconcileStatus = "inconclusive"
)

// ReconcileResult is the outcome of a successful (non-ERROR) run.
type ReconcileResult struct {
	Status ReconcileStatus

	// Order is set when Status is ReconcileDone.
	Order *domain.Order

	// WebhookSettled reports whether the webhook path created the order
	// before the wait budget ran out.
	WebhookSettled bool
}

// Reconciler coordinates the browser-return settlement path.
//
// It runs a small state machine per return: verify the payment with the
// provider, wait briefly for the webhook to settle, then fall back to
// in-line materialization from the best available bag source. Errors
// returned here mean no order was or can yet be created for this
// payment; everything else resolves to Done or Inconclusive.
type Reconciler struct {
	orders   *OrderService
	sessions domain.SessionStore
	provider billing.Provider
	config   ReconcileConfig
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. Zero-valued config fields fall
// back to five attempts at one second apart, preferring metadata.
func NewReconciler(
	orders *OrderService,
	sessions domain.SessionStore,
	provider billing.Provider,
	config ReconcileConfig,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Reconciler {
	if config.WebhookWaitAttempts == 0 {
		config.WebhookWaitAttempts = 5
	}
	if config.WebhookWaitDelay == 0 {
		config.WebhookWaitDelay = time.Second
	}
	if config.Fallback == "" {
		config.Fallback = FallbackMetadataFirst
	}

	return &Reconciler{
		orders:   orders,
		sessions: sessions,
		provider: provider,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Reconcile settles a browser return from the payment provider.
func (r *Reconciler) Reconcile(ctx context.Context, session *domain.Session, clientSecret string) (*ReconcileResult, error) {
	paymentRef, err := PaymentRefFromClientSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	pi, err := r.provider.GetPaymentIntent(ctx, billing.GetPaymentIntentParams{
		PaymentIntentID: paymentRef,
	})
	if err != nil {
		r.logger.Error("failed to verify payment with provider",
			"payment_ref", paymentRef,
			"error", err)
		return nil, domain.WrapError(err, domain.EPAYMENT, "reconcile.verify", "Could not verify your payment, please try again")
	}

	if !pi.Succeeded() {
		r.logger.Warn("browser returned with non-succeeded payment",
			"payment_ref", paymentRef,
			"status", pi.Status)
		r.metrics.RecordPaymentOutcome(false)
		return nil, ErrPaymentNotSucceeded
	}
	r.metrics.RecordPaymentOutcome(true)

	// The webhook is the authoritative settlement path. Give it a
	// bounded head start before materializing in-line.
	if order, ok := r.awaitWebhookOrder(ctx, paymentRef); ok {
		r.metrics.RecordWebhookWait("found")
		return r.finish(ctx, session, order, true)
	}
	r.metrics.RecordWebhookWait("timeout")

	order, err := r.fallbackMaterialize(ctx, session, pi)
	if err != nil {
		return nil, err
	}
	if order == nil {
		// No usable bag anywhere. Don't invent an empty order; the
		// webhook will land eventually and create the real one.
		r.logger.Warn("no bag available for fallback materialization",
			"payment_ref", paymentRef)
		return &ReconcileResult{Status: ReconcileInconclusive}, nil
	}

	return r.finish(ctx, session, order, false)
}

// awaitWebhookOrder polls for a webhook-created order within the
// configured budget. Returns ok=false once the budget is exhausted.
func (r *Reconciler) awaitWebhookOrder(ctx context.Context, paymentRef string) (*domain.Order, bool) {
	var order *domain.Order

	backoff := retry.WithMaxRetries(r.config.WebhookWaitAttempts, retry.NewConstant(r.config.WebhookWaitDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		found, err := r.orders.GetByPaymentRef(ctx, paymentRef)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		order = found
		return nil
	})
	if err != nil {
		return nil, false
	}
	return order, true
}

// fallbackMaterialize rebuilds the order from the best available bag
// source. Returns (nil, nil) when no source yields a usable bag.
func (r *Reconciler) fallbackMaterialize(ctx context.Context, session *domain.Session, pi *billing.PaymentIntent) (*domain.Order, error) {
	params, source := r.pickFallbackSource(session, pi)
	r.metrics.RecordFallbackSource(source)
	if params == nil {
		return nil, nil
	}

	r.logger.Info("falling back to in-line materialization",
		"payment_ref", pi.ID,
		"bag_source", source)

	order, _, err := r.orders.Materialize(ctx, *params)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// pickFallbackSource applies the configured policy to choose between
// provider metadata and the local session cache.
func (r *Reconciler) pickFallbackSource(session *domain.Session, pi *billing.PaymentIntent) (*MaterializeParams, string) {
	fromMetadata := func() *MaterializeParams {
		staged, ok := checkout.RecoverMetadata(pi.Metadata)
		if !ok || staged.Bag.IsEmpty() {
			return nil
		}
		return &MaterializeParams{
			PaymentRef: pi.ID,
			Bag:        staged.Bag,
			Shipping:   staged.Data,
			ProfileID:  staged.ProfileID,
			Source:     SourceFallback,
		}
	}
	fromSession := func() *MaterializeParams {
		if session == nil || session.Bag.IsEmpty() {
			return nil
		}
		return &MaterializeParams{
			PaymentRef: pi.ID,
			Bag:        session.Bag,
			Shipping:   session.Checkout,
			ProfileID:  session.ProfileID,
			Source:     SourceFallback,
		}
	}

	first, second := fromMetadata, fromSession
	firstName, secondName := "metadata", "session"
	if r.config.Fallback == FallbackSessionFirst {
		first, second = fromSession, fromMetadata
		firstName, secondName = "session", "metadata"
	}

	if params := first(); params != nil {
		return params, firstName
	}
	if params := second(); params != nil {
		return params, secondName
	}
	return nil, "none"
}

// finish clears the session's checkout state now that an order is known
// to exist. Clearing failures are logged, not surfaced; the order is
// already durably correct.
func (r *Reconciler) finish(ctx context.Context, session *domain.Session, order *domain.Order, webhookSettled bool) (*ReconcileResult, error) {
	if session != nil {
		if err := r.sessions.ClearCheckoutState(ctx, session.Token); err != nil {
			r.logger.Error("failed to clear session after settlement",
				"session_token", session.Token,
				"order_number", order.OrderNumber,
				"error", err)
		}
	}

	r.logger.Info("reconciliation complete",
		"payment_ref", order.PaymentRef,
		"order_number", order.OrderNumber,
		"webhook_settled", webhookSettled)

	return &ReconcileResult{
		Status:         ReconcileDone,
		Order:          order,
		WebhookSettled: webhookSettled,
	}, nil
}
