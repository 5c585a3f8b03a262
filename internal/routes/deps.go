package routes

import (
	"net/http"

	"github.com/calliehq/bramble/internal/handler/storefront"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Bag
	BagHandler *storefront.BagHandler

	// Checkout flow
	CheckoutHandler *storefront.CheckoutHandler

	// Browser return reconciliation
	PaidHandler *storefront.PaidHandler

	// Order confirmation and history
	OrdersHandler *storefront.OrdersHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}
