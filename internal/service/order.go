package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/telemetry"
)

// Materialization sources, recorded in logs and metrics so operators
// can see which path settled each order.
const (
	SourceWebhook  = "webhook"
	SourceFallback = "fallback"
)

// ConfirmationSender sends the post-materialization confirmation email.
type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error
}

// MaterializeParams carries everything needed to settle a payment into
// an order. Bag and Shipping come either from provider metadata (webhook,
// metadata fallback) or from the session cache (session fallback).
type MaterializeParams struct {
	PaymentRef string
	Bag        domain.Bag
	Shipping   *domain.CheckoutData
	ProfileID  *int64
	Source     string
}

// OrderService materializes orders and serves order reads.
//
// Materialize is the single idempotency boundary of the settlement flow:
// the webhook handler and the browser-return fallback both terminate
// here, and the unique constraint on payment_ref decides the race.
type OrderService struct {
	orders   domain.OrderStore
	catalog  domain.CatalogStore
	profiles domain.ProfileStore
	sender   ConfirmationSender
	pricing  checkout.Pricing
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewOrderService creates an OrderService. sender may be nil when
// confirmation email is disabled.
func NewOrderService(
	orders domain.OrderStore,
	catalog domain.CatalogStore,
	profiles domain.ProfileStore,
	sender ConfirmationSender,
	pricing checkout.Pricing,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		profiles: profiles,
		sender:   sender,
		pricing:  pricing,
		metrics:  metrics,
		logger:   logger,
	}
}

// Materialize creates the order for a payment reference exactly once.
//
// If an order already exists for the reference it is returned with
// created=false. Otherwise the bag is re-priced against the catalog
// (metadata totals are never trusted) and the order plus line items are
// inserted in one transaction. A concurrent caller losing the insert
// race observes the unique-constraint conflict and resolves it by
// re-fetching the winner's row; this is a normal outcome, not an error.
func (s *OrderService) Materialize(ctx context.Context, params MaterializeParams) (*domain.Order, bool, error) {
	if params.PaymentRef == "" {
		return nil, false, ErrMissingPaymentRef
	}

	// Fast path: a prior delivery already settled this payment.
	existing, err := s.orders.GetByPaymentRef(ctx, params.PaymentRef)
	if err == nil {
		s.logger.Info("order already materialized",
			"payment_ref", params.PaymentRef,
			"order_number", existing.OrderNumber,
			"source", params.Source)
		s.metrics.RecordDuplicateMaterialization(params.Source)
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, false, domain.Internal(err, "order.materialize", "failed to check for existing order")
	}

	summary, err := checkout.Summarize(ctx, s.catalog, params.Bag, s.pricing)
	if err != nil {
		return nil, false, err
	}

	shipping := params.Shipping
	if shipping == nil {
		shipping = &domain.CheckoutData{}
	}

	orderNumber, err := generateOrderNumber()
	if err != nil {
		return nil, false, domain.Internal(err, "order.materialize", "failed to generate order number")
	}

	order := &domain.Order{
		OrderNumber: orderNumber,
		PaymentRef:  params.PaymentRef,
		Status:      domain.OrderStatusPaid,
		FullName:    shipping.FullName,
		Email:       shipping.Email,
		Phone:       shipping.Phone,
		Address1:    shipping.Address1,
		Address2:    shipping.Address2,
		City:        shipping.City,
		County:      shipping.County,
		Postcode:    shipping.Postcode,
		Country:     shipping.Country,
		Subtotal:    summary.Subtotal,
		DeliveryFee: summary.DeliveryFee,
		GrandTotal:  summary.GrandTotal,
		OriginalBag: params.Bag.JSON(),
		ProfileID:   params.ProfileID,
	}

	items := make([]domain.OrderLineItem, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, domain.OrderLineItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			SKU:       line.Product.SKU,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	// Every bag line referenced a missing product. The payment is still
	// real money, so the order is created anyway and flagged for an
	// operator to resolve by hand.
	if len(items) == 0 {
		s.logger.Warn("materializing order with no line items",
			"payment_ref", params.PaymentRef,
			"order_number", orderNumber,
			"bag", string(params.Bag.JSON()))
		s.metrics.RecordEmptyOrder(params.Source)
	}

	if err := s.orders.Create(ctx, order, items); err != nil {
		if errors.Is(err, domain.ErrDuplicatePaymentRef) {
			// Lost the race. The winner's row is the order.
			winner, fetchErr := s.orders.GetByPaymentRef(ctx, params.PaymentRef)
			if fetchErr != nil {
				return nil, false, domain.Internal(fetchErr, "order.materialize", "failed to fetch winning order after conflict")
			}
			s.logger.Info("lost materialization race",
				"payment_ref", params.PaymentRef,
				"order_number", winner.OrderNumber,
				"source", params.Source)
			s.metrics.RecordDuplicateMaterialization(params.Source)
			return winner, false, nil
		}
		return nil, false, domain.Internal(err, "order.materialize", "failed to create order")
	}

	s.logger.Info("order materialized",
		"payment_ref", params.PaymentRef,
		"order_number", order.OrderNumber,
		"grand_total", order.GrandTotal.String(),
		"line_items", len(items),
		"source", params.Source)
	s.metrics.RecordOrderCreated(params.Source, summary.GrandTotal)

	// Post-materialization side effects are best effort. The order is
	// already durably correct; a failed profile save or email must not
	// surface as a checkout failure.
	s.saveProfile(ctx, params, shipping)
	s.sendConfirmation(ctx, order, items)

	return order, true, nil
}

// GetByPaymentRef returns the order for a payment reference.
func (s *OrderService) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.Order, error) {
	return s.orders.GetByPaymentRef(ctx, paymentRef)
}

// GetByNumber returns the order for a public order number.
func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.GetByNumber(ctx, orderNumber)
}

// LineItems returns an order's line items.
func (s *OrderService) LineItems(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error) {
	return s.orders.LineItems(ctx, orderID)
}

// ListByProfile returns a profile's order history, newest first.
func (s *OrderService) ListByProfile(ctx context.Context, profileID int64) ([]*domain.Order, error) {
	return s.orders.ListByProfile(ctx, profileID)
}

func (s *OrderService) saveProfile(ctx context.Context, params MaterializeParams, shipping *domain.CheckoutData) {
	if !shipping.SaveInfo || params.ProfileID == nil {
		return
	}
	if err := s.profiles.SaveShipping(ctx, *params.ProfileID, shipping); err != nil {
		s.logger.Error("failed to save shipping details to profile",
			"profile_id", *params.ProfileID,
			"payment_ref", params.PaymentRef,
			"error", err)
	}
}

func (s *OrderService) sendConfirmation(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) {
	if s.sender == nil || order.Email == "" {
		return
	}
	if err := s.sender.SendOrderConfirmation(ctx, order, items); err != nil {
		s.logger.Error("failed to send order confirmation email",
			"order_number", order.OrderNumber,
			"email", order.Email,
			"error", err)
	}
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateOrderNumber builds an opaque order number of the form
// ORD-20250114-K7QX2M. Random, not sequential, so order numbers can't
// be guessed from a confirmation URL.
func generateOrderNumber() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), string(b)), nil
}
