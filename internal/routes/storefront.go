package routes

import (
	"github.com/calliehq/bramble/internal/router"
)

// RegisterStorefrontRoutes registers all shopper-facing routes.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Shopping bag
	r.Get("/bag", deps.BagHandler.View)
	r.Post("/bag/add/{id}", deps.BagHandler.Add)
	r.Post("/bag/adjust/{id}", deps.BagHandler.Adjust)
	r.Post("/bag/remove/{id}", deps.BagHandler.Remove)

	// Checkout flow
	r.Get("/checkout", deps.CheckoutHandler.Page)
	r.Post("/checkout/cache", deps.CheckoutHandler.Cache)

	// Browser return from the payment provider. The reconciler arbitrates
	// between this path and the webhook, so the handler only needs the
	// client secret from the query string.
	r.Get("/checkout/paid", deps.PaidHandler.Paid)
	r.Get("/checkout/success/{order_number}", deps.OrdersHandler.Confirmation)

	// Account
	r.Get("/account/orders", deps.OrdersHandler.History)
}
