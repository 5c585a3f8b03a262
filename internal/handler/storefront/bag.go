package storefront

import (
	"context"
	"net/http"
	"strconv"

	"github.com/calliehq/bramble/internal/checkout"
	"github.com/calliehq/bramble/internal/domain"
	"github.com/calliehq/bramble/internal/handler"
)

// BagEditor mutates the session bag.
type BagEditor interface {
	Add(ctx context.Context, session *domain.Session, productID string, quantity int) error
	Adjust(ctx context.Context, session *domain.Session, productID string, quantity int) error
	Remove(ctx context.Context, session *domain.Session, productID string) error
}

// BagPricer prices a bag against the live catalog.
type BagPricer interface {
	Summarize(ctx context.Context, bag domain.Bag) (*checkout.Summary, error)
}

// BagHandler handles the shopping bag routes.
type BagHandler struct {
	sessions *SessionManager
	bags     BagEditor
	pricer   BagPricer
}

// NewBagHandler creates a bag handler.
func NewBagHandler(sessions *SessionManager, bags BagEditor, pricer BagPricer) *BagHandler {
	return &BagHandler{
		sessions: sessions,
		bags:     bags,
		pricer:   pricer,
	}
}

// View handles GET /bag
func (h *BagHandler) View(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respondSummary(w, r, session.Bag)
}

// Add handles POST /bag/add/{id}
func (h *BagHandler) Add(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	quantity := 1
	if raw := r.FormValue("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			handler.ErrorResponse(w, r, domain.Invalid("bag.add", "quantity must be a number"))
			return
		}
	}

	if err := h.bags.Add(r.Context(), session, r.PathValue("id"), quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respondSummary(w, r, session.Bag)
}

// Adjust handles POST /bag/adjust/{id}
func (h *BagHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	quantity, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("bag.adjust", "quantity must be a number"))
		return
	}

	if err := h.bags.Adjust(r.Context(), session, r.PathValue("id"), quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respondSummary(w, r, session.Bag)
}

// Remove handles POST /bag/remove/{id}
func (h *BagHandler) Remove(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(w, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.bags.Remove(r.Context(), session, r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respondSummary(w, r, session.Bag)
}

func (h *BagHandler) respondSummary(w http.ResponseWriter, r *http.Request, bag domain.Bag) {
	summary, err := h.pricer.Summarize(r.Context(), bag)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, struct {
		Summary *checkout.Summary `json:"summary"`
	}{Summary: summary})
}
