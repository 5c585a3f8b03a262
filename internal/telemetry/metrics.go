package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds Prometheus metrics for the checkout and settlement flow.
// Counters that can fire from either settlement path carry a "source"
// label (webhook or fallback) so dashboards can show which path is
// actually winning the race in production.
type Metrics struct {
	// Bag activity
	BagUpdates *prometheus.CounterVec

	// Checkout funnel
	CheckoutStarted  prometheus.Counter
	PaymentSucceeded prometheus.Counter
	PaymentFailed    prometheus.Counter

	// Settlement
	OrdersCreated      *prometheus.CounterVec
	OrderValue         *prometheus.HistogramVec
	DuplicateSettles   *prometheus.CounterVec
	EmptyOrders        *prometheus.CounterVec
	FallbackSource     *prometheus.CounterVec
	WebhookWaitOutcome *prometheus.CounterVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   *prometheus.CounterVec
	WebhookLatency  prometheus.Histogram

	// Maintenance
	SessionsSwept prometheus.Counter
}

// NewMetrics registers settlement metrics on the given registerer.
// Tests pass prometheus.NewRegistry() so parallel tests don't collide
// on the default registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BagUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bag_updates_total",
			Help:      "Bag mutations by action (add, adjust, remove)",
		}, []string{"action"}),

		CheckoutStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_started_total",
			Help:      "Checkouts where a payment intent was created",
		}),
		PaymentSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_succeeded_total",
			Help:      "Payments confirmed succeeded by the provider",
		}),
		PaymentFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failed_total",
			Help:      "Payments observed in a non-succeeded terminal state",
		}),

		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders materialized, by settlement source",
		}, []string{"source"}),
		OrderValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Grand total of materialized orders in major currency units",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
		}, []string{"source"}),
		DuplicateSettles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_settlements_total",
			Help:      "Materialization attempts resolved to an existing order",
		}, []string{"source"}),
		EmptyOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_orders_total",
			Help:      "Orders materialized with zero line items, needs operator attention",
		}, []string{"source"}),
		FallbackSource: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_bag_source_total",
			Help:      "Bag source used by fallback materialization (metadata, session, none)",
		}, []string{"bag_source"}),
		WebhookWaitOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_wait_outcome_total",
			Help:      "Outcome of the bounded wait for the webhook order (found, timeout)",
		}, []string{"outcome"}),

		WebhookReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_received_total",
			Help:      "Webhook events received, by event type",
		}, []string{"event_type"}),
		WebhookFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_failed_total",
			Help:      "Webhook events that failed processing, by reason",
		}, []string{"reason"}),
		WebhookLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_processing_seconds",
			Help:      "Webhook handler processing time",
			Buckets:   prometheus.DefBuckets,
		}),

		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired sessions deleted by the sweeper",
		}),
	}
}

// RecordOrderCreated records a freshly materialized order.
func (m *Metrics) RecordOrderCreated(source string, grandTotal decimal.Decimal) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(source).Inc()
	m.OrderValue.WithLabelValues(source).Observe(grandTotal.InexactFloat64())
}

// RecordDuplicateMaterialization records an attempt that resolved to an
// already existing order.
func (m *Metrics) RecordDuplicateMaterialization(source string) {
	if m == nil {
		return
	}
	m.DuplicateSettles.WithLabelValues(source).Inc()
}

// RecordEmptyOrder records an order materialized with no line items.
func (m *Metrics) RecordEmptyOrder(source string) {
	if m == nil {
		return
	}
	m.EmptyOrders.WithLabelValues(source).Inc()
}

// RecordBagUpdate records a bag mutation.
func (m *Metrics) RecordBagUpdate(action string) {
	if m == nil {
		return
	}
	m.BagUpdates.WithLabelValues(action).Inc()
}

// RecordCheckoutStarted records a created payment intent.
func (m *Metrics) RecordCheckoutStarted() {
	if m == nil {
		return
	}
	m.CheckoutStarted.Inc()
}

// RecordPaymentOutcome records the verified payment status on browser return.
func (m *Metrics) RecordPaymentOutcome(succeeded bool) {
	if m == nil {
		return
	}
	if succeeded {
		m.PaymentSucceeded.Inc()
	} else {
		m.PaymentFailed.Inc()
	}
}

// RecordFallbackSource records which bag source the fallback path used.
func (m *Metrics) RecordFallbackSource(source string) {
	if m == nil {
		return
	}
	m.FallbackSource.WithLabelValues(source).Inc()
}

// RecordWebhookWait records the outcome of the bounded webhook wait.
func (m *Metrics) RecordWebhookWait(outcome string) {
	if m == nil {
		return
	}
	m.WebhookWaitOutcome.WithLabelValues(outcome).Inc()
}

// RecordWebhookReceived records an inbound verified webhook event.
func (m *Metrics) RecordWebhookReceived(eventType string) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(eventType).Inc()
}

// RecordWebhookFailed records a webhook processing failure.
func (m *Metrics) RecordWebhookFailed(reason string) {
	if m == nil {
		return
	}
	m.WebhookFailed.WithLabelValues(reason).Inc()
}

// ObserveWebhookLatency records webhook handler processing time.
func (m *Metrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.WebhookLatency.Observe(seconds)
}

// RecordSessionsSwept records expired sessions removed in one sweep.
func (m *Metrics) RecordSessionsSwept(deleted int64) {
	if m == nil || deleted <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(deleted))
}
