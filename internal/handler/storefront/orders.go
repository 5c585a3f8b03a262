package storefront

import (
	"context"
	"net/http"

	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/handler"
)

// OrderReader reads settled orders for confirmation and history views.
type OrderReader interface {
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	LineItems(ctx context.Context, orderID int64) ([]domain.OrderLineItem, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*domain.Order, error)
}

// OrdersHandler handles order confirmation and history routes.
type OrdersHandler struct {
	sessions *SessionManager
	orders   OrderReader
	cookies  *cookie.Config
}

// NewOrdersHandler creates an orders handler.
func NewOrdersHandler(sessions *SessionManager, orders OrderReader, cookies *cookie.Config) *OrdersHandler {
	return &OrdersHandler{
		sessions: sessions,
		orders:   orders,
		cookies:  cookies,
	}
}

// Confirmation handles GET /checkout/success/{order_number}
func (h *OrdersHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetByNumber(r.Context(), r.PathValue("order_number"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items, err := h.orders.LineItems(r.Context(), order.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, struct {
		Order *domain.Order          `json:"order"`
		Items []domain.OrderLineItem `json:"items"`
		Flash *Flash                 `json:"flash,omitempty"`
	}{
		Order: order,
		Items: items,
		Flash: PopFlash(w, r, h.cookies),
	})
}

// History handles GET /account/orders
//
// Shoppers without a profile see an empty history; this is also the
// landing page when a payment settled but the order hasn't appeared
// yet, so the response always carries any pending flash message.
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	var orders []*domain.Order

	session := h.sessions.Existing(r)
	if session != nil && session.ProfileID != nil {
		listed, err := h.orders.ListByProfile(r.Context(), *session.ProfileID)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		orders = listed
	}

	if orders == nil {
		orders = []*domain.Order{}
	}

	handler.JSON(w, http.StatusOK, struct {
		Orders []*domain.Order `json:"orders"`
		Flash  *Flash          `json:"flash,omitempty"`
	}{
		Orders: orders,
		Flash:  PopFlash(w, r, h.cookies),
	})
}
