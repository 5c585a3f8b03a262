package storefront

import (
	"context"
	"net/http"

	"github.com/calliehq/bramble/internal/cookie"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/service"
)

// Reconciler settles a browser return from the payment provider.
type Reconciler interface {
	Reconcile(ctx context.Context, session *domain.Session, clientSecret string) (*service.ReconcileResult, error)
}

// PaidHandler handles the browser-return leg of checkout. The payment
// provider redirects the shopper here after confirmation; the handler
// resolves whether an order exists yet and routes the shopper to the
// right landing page.
type PaidHandler struct {
	sessions   *SessionManager
	reconciler Reconciler
	cookies    *cookie.Config
}

// NewPaidHandler creates a paid-return handler.
func NewPaidHandler(sessions *SessionManager, reconciler Reconciler, cookies *cookie.Config) *PaidHandler {
	return &PaidHandler{
		sessions:   sessions,
		reconciler: reconciler,
		cookies:    cookies,
	}
}

// Paid handles GET /checkout/paid
//
// The session may be absent (cookie expired mid-payment); the
// reconciler can still settle from the intent metadata, so a nil
// session is passed through rather than treated as an error.
func (h *PaidHandler) Paid(w http.ResponseWriter, r *http.Request) {
	clientSecret := r.URL.Query().Get("payment_intent_client_secret")
	session := h.sessions.Existing(r)

	result, err := h.reconciler.Reconcile(r.Context(), session, clientSecret)
	if err != nil {
		SetFlash(w, h.cookies, FlashError, domain.ErrorMessage(err))
		http.Redirect(w, r, "/checkout", http.StatusSeeOther)
		return
	}

	switch result.Status {
	case service.ReconcileDone:
		SetFlash(w, h.cookies, FlashSuccess, "Order "+result.Order.OrderNumber+" confirmed. Thank you!")
		http.Redirect(w, r, "/checkout/success/"+result.Order.OrderNumber, http.StatusSeeOther)

	default:
		// Payment went through but no order could be built yet; the
		// webhook will settle it shortly.
		SetFlash(w, h.cookies, FlashInfo, "Your payment was received. Your order will appear in your order history shortly.")
		http.Redirect(w, r, "/account/orders", http.StatusSeeOther)
	}
}
